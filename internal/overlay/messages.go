package overlay

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/bytedance/sonic"
)

// Kind enumerates the messages exchanged across the frame boundary.
type Kind string

const (
	// KindAddCommentRequest is posted by an overlay when the user clicks the page in comment mode.
	KindAddCommentRequest Kind = "ADD_COMMENT_REQUEST"
	// KindOpenComment is posted by an overlay when the user clicks a marker.
	KindOpenComment Kind = "OPEN_COMMENT"
	// KindToggleCommentMode switches click capture on or off.
	KindToggleCommentMode Kind = "TOGGLE_COMMENT_MODE"
	// KindRenderMarkers replaces every marker in the receiving overlay.
	KindRenderMarkers Kind = "RENDER_MARKERS"
	// KindClearMarkers removes every marker from the receiving overlay.
	KindClearMarkers Kind = "CLEAR_MARKERS"
)

// Direction says which side of the boundary emits a kind.
type Direction int

const (
	ToParent Direction = iota + 1
	ToChild
)

func (d Direction) String() string {
	switch d {
	case ToParent:
		return "child->parent"
	case ToChild:
		return "parent->child"
	}
	return "unknown"
}

var (
	ErrUnknownKind       = errors.New("unknown message kind")
	ErrMissingBreakpoint = errors.New("message has no breakpoint")
	ErrWrongDirection    = errors.New("message sent in the wrong direction")
	ErrInvalidMessage    = errors.New("invalid message")
)

// Direction returns who sends k, or zero for unknown kinds.
func (k Kind) Direction() Direction {
	switch k {
	case KindAddCommentRequest, KindOpenComment:
		return ToParent
	case KindToggleCommentMode, KindRenderMarkers, KindClearMarkers:
		return ToChild
	}
	return 0
}

// Marker is one comment as the overlay needs it. X and Y are document percentages.
type Marker struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Resolved bool    `json:"resolved"`
	Count    int     `json:"count,omitempty"`
}

// Message is the envelope for every kind. Breakpoint is the routing key and
// is mandatory; the remaining fields belong to specific kinds.
type Message struct {
	Type       Kind   `json:"type"`
	Breakpoint string `json:"breakpoint"`

	// ADD_COMMENT_REQUEST
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	PageX     float64  `json:"pageX,omitempty"`
	PageY     float64  `json:"pageY,omitempty"`
	DocWidth  float64  `json:"docWidth,omitempty"`
	DocHeight float64  `json:"docHeight,omitempty"`

	// OPEN_COMMENT
	CommentID string `json:"commentId,omitempty"`

	// TOGGLE_COMMENT_MODE
	Enabled *bool `json:"enabled,omitempty"`

	// RENDER_MARKERS
	Comments []Marker `json:"comments,omitempty"`
}

// Position returns the document-relative position of an ADD_COMMENT_REQUEST.
func (m *Message) Position() coords.Percent {
	var p coords.Percent
	if m.X != nil {
		p.X = *m.X
	}
	if m.Y != nil {
		p.Y = *m.Y
	}
	return p
}

// Validate checks the routing key and the fields required by the kind.
func (m *Message) Validate() error {
	if m.Type.Direction() == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Type)
	}
	if m.Breakpoint == "" {
		return fmt.Errorf("%s: %w", m.Type, ErrMissingBreakpoint)
	}

	switch m.Type {
	case KindAddCommentRequest:
		if m.X == nil || m.Y == nil {
			return fmt.Errorf("%s: x and y are required: %w", m.Type, ErrInvalidMessage)
		}
		if !m.Position().Valid() {
			return fmt.Errorf("%s: position %.2f,%.2f outside [0,100]: %w", m.Type, *m.X, *m.Y, ErrInvalidMessage)
		}
	case KindOpenComment:
		if m.CommentID == "" {
			return fmt.Errorf("%s: commentId is required: %w", m.Type, ErrInvalidMessage)
		}
	case KindToggleCommentMode:
		if m.Enabled == nil {
			return fmt.Errorf("%s: enabled is required: %w", m.Type, ErrInvalidMessage)
		}
	case KindRenderMarkers:
		for i, mk := range m.Comments {
			if mk.ID == "" {
				return fmt.Errorf("%s: comment %d has no id: %w", m.Type, i, ErrInvalidMessage)
			}
		}
	}
	return nil
}

// Decode parses and validates a message received from direction dir.
func Decode(data []byte, dir Direction) (*Message, error) {
	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode overlay message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Type.Direction() != dir {
		return nil, fmt.Errorf("%s is %s: %w", m.Type, m.Type.Direction(), ErrWrongDirection)
	}
	return &m, nil
}

// Encode validates and serializes m.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return sonic.Marshal(m)
}

// AddCommentRequest builds the message an overlay posts for a click at the
// scroll-inclusive page point inside a document of the given extent.
func AddCommentRequest(breakpoint string, page coords.Point, doc coords.Size) Message {
	pct := coords.ToPercent(page, doc)
	return Message{
		Type:       KindAddCommentRequest,
		Breakpoint: breakpoint,
		X:          &pct.X,
		Y:          &pct.Y,
		PageX:      page.X,
		PageY:      page.Y,
		DocWidth:   doc.Width,
		DocHeight:  doc.Height,
	}
}

func OpenComment(breakpoint, commentID string) Message {
	return Message{Type: KindOpenComment, Breakpoint: breakpoint, CommentID: commentID}
}

func ToggleCommentMode(breakpoint string, enabled bool) Message {
	return Message{Type: KindToggleCommentMode, Breakpoint: breakpoint, Enabled: &enabled}
}

func RenderMarkers(breakpoint string, markers []Marker) Message {
	return Message{Type: KindRenderMarkers, Breakpoint: breakpoint, Comments: markers}
}

func ClearMarkers(breakpoint string) Message {
	return Message{Type: KindClearMarkers, Breakpoint: breakpoint}
}

// MarkersFor converts stored comments into markers. The count shown on a
// marker is the size of its thread.
func MarkersFor(comments []*types.Comment) []Marker {
	out := make([]Marker, 0, len(comments))
	for _, c := range comments {
		out = append(out, Marker{
			ID:       c.ID,
			X:        c.X,
			Y:        c.Y,
			Resolved: c.Resolved,
			Count:    1 + len(c.Replies),
		})
	}
	return out
}
