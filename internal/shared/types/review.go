package types

import (
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
)

// ReviewType is the gesture that produced a review.
type ReviewType string

const (
	ReviewPoint   ReviewType = "point"
	ReviewArea    ReviewType = "area"
	ReviewDrawing ReviewType = "drawing"
)

// DefaultReviewColor is applied when a review is created without a color.
const DefaultReviewColor = "#ff4444"

// Valid reports whether t is a known review type.
func (t ReviewType) Valid() bool {
	switch t {
	case ReviewPoint, ReviewArea, ReviewDrawing:
		return true
	}
	return false
}

// Review is a freeform annotation on one breakpoint frame of a project.
// Position is canvas-local and unscaled; Drawing holds the serialized stroke.
type Review struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project"`
	BreakpointIndex int             `json:"breakpointIndex"`
	Type            ReviewType      `json:"type"`
	Position        coords.Rect     `json:"position"`
	Drawing         string          `json:"drawing,omitempty"`
	Color           string          `json:"color"`
	CreatedBy       string          `json:"createdBy"`
	Comments        []ReviewComment `json:"comments"`
	Resolved        bool            `json:"resolved"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ReviewComment is a short discussion entry attached to a review.
type ReviewComment struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"createdAt"`
}
