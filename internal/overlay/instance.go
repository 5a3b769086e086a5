package overlay

import (
	"strconv"
	"sync"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
)

// Marker colors and the label shown for single-comment threads.
const (
	ColorOpen     = "#FF6B6B"
	ColorResolved = "#51CF66"
	SingleLabel   = "💬"
)

// Placement is a marker resolved against a concrete document size.
type Placement struct {
	Marker
	Left  float64
	Top   float64
	Color string
	Label string
}

// Instance models one embedded document's overlay: the receiving end of
// parent messages and the source of click requests. It follows the same
// rules as the injected script and is what the script is tested against.
type Instance struct {
	mu          sync.Mutex
	breakpoint  string
	commentMode bool
	markers     []Marker
}

// NewInstance creates an overlay. An empty breakpoint is bound by the first
// TOGGLE_COMMENT_MODE addressed to the instance.
func NewInstance(breakpoint string) *Instance {
	return &Instance{breakpoint: breakpoint}
}

func (in *Instance) Breakpoint() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.breakpoint
}

func (in *Instance) CommentMode() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.commentMode
}

// Markers returns a copy of the markers currently rendered.
func (in *Instance) Markers() []Marker {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]Marker(nil), in.markers...)
}

// Receive applies a parent message. It reports false, with no error, when
// the message is addressed to another breakpoint.
func (in *Instance) Receive(m Message) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	if m.Type.Direction() != ToChild {
		return false, ErrWrongDirection
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if m.Type == KindToggleCommentMode && in.breakpoint == "" {
		in.breakpoint = m.Breakpoint
	}
	if m.Breakpoint != in.breakpoint {
		return false, nil
	}

	switch m.Type {
	case KindToggleCommentMode:
		in.commentMode = *m.Enabled
	case KindRenderMarkers:
		in.markers = append(in.markers[:0], m.Comments...)
	case KindClearMarkers:
		in.markers = nil
	}
	return true, nil
}

// Click returns the message posted for a click at the page point, or nil
// when the click belongs to the page (comment mode off) or hits a marker.
func (in *Instance) Click(page coords.Point, doc coords.Size, onMarker bool) *Message {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.breakpoint == "" || !in.commentMode || onMarker || doc.Empty() {
		return nil
	}
	m := AddCommentRequest(in.breakpoint, page, doc)
	return &m
}

// OpenMarker returns the message posted when a marker is clicked, or nil
// while the instance is unbound.
func (in *Instance) OpenMarker(commentID string) *Message {
	bp := in.Breakpoint()
	if bp == "" {
		return nil
	}
	m := OpenComment(bp, commentID)
	return &m
}

// Layout positions every marker against doc, which must be the document
// size at render time.
func (in *Instance) Layout(doc coords.Size) []Placement {
	markers := in.Markers()
	out := make([]Placement, 0, len(markers))
	for _, mk := range markers {
		px := coords.Percent{X: mk.X, Y: mk.Y}.ToPixel(doc)
		out = append(out, Placement{
			Marker: mk,
			Left:   px.X,
			Top:    px.Y,
			Color:  markerColor(mk.Resolved),
			Label:  markerLabel(mk.Count),
		})
	}
	return out
}

func markerColor(resolved bool) string {
	if resolved {
		return ColorResolved
	}
	return ColorOpen
}

func markerLabel(count int) string {
	if count > 1 {
		return strconv.Itoa(count)
	}
	return SingleLabel
}
