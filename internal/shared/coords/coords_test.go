package coords

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentExtentUsesLargestDimension(t *testing.T) {
	root := ElementMetrics{ScrollWidth: 1000, OffsetWidth: 980, ScrollHeight: 1500, OffsetHeight: 900}
	body := ElementMetrics{ScrollWidth: 990, OffsetWidth: 1000, ScrollHeight: 2000, OffsetHeight: 1990}

	assert.Equal(t, Size{Width: 1000, Height: 2000}, DocumentExtent(root, body))
}

func TestPercentRoundTrip(t *testing.T) {
	doc := Size{Width: 1366, Height: 4213}
	points := []Point{{0, 0}, {683, 2106.5}, {1365, 4212}, {17, 3999}}

	for _, p := range points {
		back := ToPercent(p, doc).ToPixel(doc)
		assert.InDelta(t, p.X, back.X, 1e-9)
		assert.InDelta(t, p.Y, back.Y, 1e-9)
	}
}

func TestCommentCenterRendersAtDocumentCenter(t *testing.T) {
	doc := Size{Width: 1000, Height: 2000}

	pct := ToPercent(Point{X: 500, Y: 1000}, doc)
	assert.Equal(t, Percent{X: 50, Y: 50}, pct)
	assert.Equal(t, Point{X: 500, Y: 1000}, pct.ToPixel(doc))
}

func TestToPercentEmptyDocument(t *testing.T) {
	assert.Equal(t, Percent{}, ToPercent(Point{X: 10, Y: 10}, Size{}))
}

func TestPercentValidAndClamp(t *testing.T) {
	tests := []struct {
		name  string
		in    Percent
		valid bool
		want  Percent
	}{
		{"inside", Percent{10, 90}, true, Percent{10, 90}},
		{"edges", Percent{0, 100}, true, Percent{0, 100}},
		{"negative", Percent{-3, 50}, false, Percent{0, 50}},
		{"overflow", Percent{40, 140}, false, Percent{40, 100}},
		{"nan", Percent{math.NaN(), 5}, false, Percent{0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.in.Valid())
			assert.Equal(t, tt.want, tt.in.Clamp())
		})
	}
}

func TestScrollTarget(t *testing.T) {
	doc := Size{Width: 3000, Height: 2000}
	vp := Size{Width: 800, Height: 600}

	got := ScrollTarget(Percent{X: 80, Y: 10}, doc, vp)
	assert.Equal(t, Point{X: 2000, Y: 0}, got, "y resolves to 200-300 and clamps to zero")

	got = ScrollTarget(Percent{X: 80, Y: 40}, doc, vp)
	assert.Equal(t, Point{X: 2000, Y: 500}, got)

	got = ScrollTarget(Percent{X: 1, Y: 1}, doc, vp)
	assert.Equal(t, Point{}, got)
}

func TestRectNormalize(t *testing.T) {
	r := Rect{X: 100, Y: 80, Width: -40, Height: -20}.Normalize()
	assert.Equal(t, Rect{X: 60, Y: 60, Width: 40, Height: 20}, r)
}

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{Pan: Point{X: -120, Y: 45}, Zoom: 0.5}
	origin := Point{X: 1500, Y: 0}
	local := Point{X: 320, Y: 780}

	screen := tr.ToScreen(local, origin)
	assert.Equal(t, local, tr.ToLocal(screen, origin))

	zero := Transform{}
	assert.Equal(t, Point{X: 5, Y: 5}, zero.ToLocal(Point{X: 5, Y: 5}, Point{}))
}

func TestDrawingCodec(t *testing.T) {
	stroke := []Point{{1, 2}, {3, 4.5}, {10, 20}}

	s, err := EncodeDrawing(stroke)
	require.NoError(t, err)

	back, err := ParseDrawing(s)
	require.NoError(t, err)
	assert.Equal(t, stroke, back)

	_, err = ParseDrawing("not json")
	assert.Error(t, err)
}
