package types

import (
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
)

// DefaultBreakpoint labels comments created without an explicit breakpoint.
const DefaultBreakpoint = "desktop"

// AnonymousAuthor is used when neither the request nor the identity names an author.
const AnonymousAuthor = "Anonymous"

// Comment is a positioned note on a live page. X and Y are document-relative
// percentages captured at creation time.
type Comment struct {
	ID          string           `json:"id"`
	URL         string           `json:"url"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Breakpoint  string           `json:"breakpoint"`
	Text        string           `json:"text"`
	Author      string           `json:"author"`
	UserID      string           `json:"userId,omitempty"`
	ProjectID   string           `json:"projectId,omitempty"`
	Resolved    bool             `json:"resolved"`
	Replies     []Reply          `json:"replies"`
	TaggedUsers []string         `json:"taggedUsers"`
	Metadata    *CaptureMetadata `json:"metadata,omitempty"`
	Timestamp   int64            `json:"timestamp"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Position returns the stored document-relative position.
func (c *Comment) Position() coords.Percent {
	return coords.Percent{X: c.X, Y: c.Y}
}

// Reply belongs to exactly one comment and is never edited once appended.
type Reply struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	Image       string    `json:"image,omitempty"`
	TaggedUsers []string  `json:"taggedUsers"`
	Timestamp   time.Time `json:"timestamp"`
}

// NameVersion describes a browser or operating system.
type NameVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ScreenInfo describes the physical screen of the commenting client.
type ScreenInfo struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// Dimensions is an integer width/height pair.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CaptureMetadata is environment information recorded with a comment. The
// screenshot reference is attached later by comment id.
type CaptureMetadata struct {
	Browser    *NameVersion `json:"browser,omitempty"`
	OS         *NameVersion `json:"os,omitempty"`
	Screen     *ScreenInfo  `json:"screen,omitempty"`
	Viewport   *Dimensions  `json:"viewport,omitempty"`
	PageURL    string       `json:"pageUrl,omitempty"`
	PageTitle  string       `json:"pageTitle,omitempty"`
	Timezone   string       `json:"timezone,omitempty"`
	Language   string       `json:"language,omitempty"`
	DeviceType string       `json:"deviceType,omitempty"`
	UserAgent  string       `json:"userAgent,omitempty"`
	CapturedAt *time.Time   `json:"capturedAt,omitempty"`
	Screenshot string       `json:"screenshot,omitempty"`
}

// CommentFilter narrows comment listings; empty fields match everything.
type CommentFilter struct {
	URL        string
	Breakpoint string
	ProjectID  string
}

// Matches reports whether the comment satisfies every non-empty filter field.
func (f CommentFilter) Matches(c *Comment) bool {
	return (f.URL == "" || c.URL == f.URL) &&
		(f.Breakpoint == "" || c.Breakpoint == f.Breakpoint) &&
		(f.ProjectID == "" || c.ProjectID == f.ProjectID)
}
