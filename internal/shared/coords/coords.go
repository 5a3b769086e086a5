// Package coords is the coordinate contract shared by comments, reviews,
// the overlay protocol and point-of-interest capture.
//
// Two position spaces exist and are never mixed:
//
//	Document-relative (comments): percentages of the full scrollable
//	document extent, each axis in [0,100]. Independent of scroll offset
//	and window size for the same rendered document.
//
//	Canvas-local (reviews): unscaled pixels inside one breakpoint frame,
//	independent of the canvas pan/zoom applied around it.
package coords

import (
	"fmt"
	"math"

	"github.com/bytedance/sonic"
)

// Size is an extent in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Percent is a document-relative position.
type Percent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ElementMetrics mirrors the scroll/offset dimensions a browser reports for an element.
type ElementMetrics struct {
	ScrollWidth  float64 `json:"scrollWidth"`
	ScrollHeight float64 `json:"scrollHeight"`
	OffsetWidth  float64 `json:"offsetWidth"`
	OffsetHeight float64 `json:"offsetHeight"`
}

// DocumentExtent is the full scrollable document size: the max of scroll and
// offset dimensions across the root element and body. The window's inner
// size never participates.
func DocumentExtent(root, body ElementMetrics) Size {
	return Size{
		Width:  max(root.ScrollWidth, root.OffsetWidth, body.ScrollWidth, body.OffsetWidth),
		Height: max(root.ScrollHeight, root.OffsetHeight, body.ScrollHeight, body.OffsetHeight),
	}
}

// Empty reports whether either axis has no extent.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// ToPercent converts a page (scroll-inclusive) point into document-relative
// coordinates. An empty document maps everything to the origin.
func ToPercent(page Point, doc Size) Percent {
	if doc.Empty() {
		return Percent{}
	}
	return Percent{
		X: page.X / doc.Width * 100,
		Y: page.Y / doc.Height * 100,
	}
}

// ToPixel resolves the position against the document size current at render time.
func (p Percent) ToPixel(doc Size) Point {
	return Point{
		X: p.X / 100 * doc.Width,
		Y: p.Y / 100 * doc.Height,
	}
}

// Valid reports whether both axes are finite and inside [0,100].
func (p Percent) Valid() bool {
	return inRange(p.X) && inRange(p.Y)
}

// Clamp pins both axes into [0,100]; NaN becomes 0.
func (p Percent) Clamp() Percent {
	return Percent{X: clampPct(p.X), Y: clampPct(p.Y)}
}

// ScrollTarget returns the scroll offset that centers the position inside a
// viewport, clamped to zero on both axes. The pixel position is resolved
// against the target document's extent, not the viewport.
func ScrollTarget(p Percent, doc, viewport Size) Point {
	px := p.ToPixel(doc)
	return Point{
		X: math.Max(0, px.X-viewport.Width/2),
		Y: math.Max(0, px.Y-viewport.Height/2),
	}
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

func clampPct(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}

// Rect is a canvas-local box; Width/Height are zero for point annotations.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Normalize flips negative extents produced by dragging up or left.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// Transform is the pan/zoom applied to the whole canvas.
type Transform struct {
	Pan  Point   `json:"pan"`
	Zoom float64 `json:"zoom"`
}

// ToLocal maps a screen point into frame-local unscaled pixels. frameOrigin
// is the frame's top-left in unscaled canvas space.
func (t Transform) ToLocal(screen, frameOrigin Point) Point {
	z := t.zoom()
	return Point{
		X: (screen.X-t.Pan.X)/z - frameOrigin.X,
		Y: (screen.Y-t.Pan.Y)/z - frameOrigin.Y,
	}
}

// ToScreen is the inverse of ToLocal.
func (t Transform) ToScreen(local, frameOrigin Point) Point {
	z := t.zoom()
	return Point{
		X: (local.X+frameOrigin.X)*z + t.Pan.X,
		Y: (local.Y+frameOrigin.Y)*z + t.Pan.Y,
	}
}

func (t Transform) zoom() float64 {
	if t.Zoom <= 0 {
		return 1
	}
	return t.Zoom
}

// ParseDrawing decodes a serialized freehand stroke: a JSON array of points.
func ParseDrawing(s string) ([]Point, error) {
	var pts []Point
	if err := sonic.UnmarshalString(s, &pts); err != nil {
		return nil, fmt.Errorf("invalid drawing: %w", err)
	}
	return pts, nil
}

// EncodeDrawing serializes a stroke in the order it was drawn.
func EncodeDrawing(pts []Point) (string, error) {
	return sonic.MarshalString(pts)
}
