package overlay

import (
	"testing"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceIgnoresOtherBreakpoints(t *testing.T) {
	mobile := NewInstance("mobile")

	handled, err := mobile.Receive(RenderMarkers("desktop", []Marker{{ID: "cmt_1", X: 5, Y: 5}}))
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, mobile.Markers())

	handled, err = mobile.Receive(RenderMarkers("mobile", []Marker{{ID: "cmt_2", X: 5, Y: 5}}))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Len(t, mobile.Markers(), 1)
}

func TestInstanceBindsOnFirstToggle(t *testing.T) {
	in := NewInstance("")

	handled, err := in.Receive(RenderMarkers("tablet", nil))
	require.NoError(t, err)
	assert.False(t, handled, "unbound instance only accepts a toggle")

	handled, err = in.Receive(ToggleCommentMode("tablet", true))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "tablet", in.Breakpoint())
	assert.True(t, in.CommentMode())

	handled, _ = in.Receive(ToggleCommentMode("desktop", false))
	assert.False(t, handled)
	assert.True(t, in.CommentMode())
}

func TestInstanceRejectsInvalidMessages(t *testing.T) {
	in := NewInstance("desktop")

	_, err := in.Receive(Message{Type: KindRenderMarkers})
	assert.ErrorIs(t, err, ErrMissingBreakpoint)

	_, err = in.Receive(OpenComment("desktop", "cmt_1"))
	assert.ErrorIs(t, err, ErrWrongDirection)
}

func TestInstanceClick(t *testing.T) {
	doc := coords.Size{Width: 1000, Height: 2000}
	in := NewInstance("desktop")

	assert.Nil(t, in.Click(coords.Point{X: 10, Y: 10}, doc, false), "clicks pass through outside comment mode")

	_, err := in.Receive(ToggleCommentMode("desktop", true))
	require.NoError(t, err)

	assert.Nil(t, in.Click(coords.Point{X: 10, Y: 10}, doc, true), "marker clicks never create comments")

	m := in.Click(coords.Point{X: 250, Y: 1500}, doc, false)
	require.NotNil(t, m)
	assert.Equal(t, KindAddCommentRequest, m.Type)
	assert.Equal(t, "desktop", m.Breakpoint)
	assert.Equal(t, coords.Percent{X: 25, Y: 75}, m.Position())

	open := in.OpenMarker("cmt_9")
	require.NotNil(t, open)
	assert.Equal(t, OpenComment("desktop", "cmt_9"), *open)
}

func TestUnboundInstancePostsNothing(t *testing.T) {
	in := NewInstance("")

	assert.Nil(t, in.OpenMarker("cmt_1"))
	assert.Nil(t, in.Click(coords.Point{X: 1, Y: 1}, coords.Size{Width: 10, Height: 10}, false))

	_, err := in.Receive(ToggleCommentMode("mobile", true))
	require.NoError(t, err)
	open := in.OpenMarker("cmt_1")
	require.NotNil(t, open)
	assert.Equal(t, "mobile", open.Breakpoint)
}

func TestLayoutUsesRenderTimeDocumentSize(t *testing.T) {
	in := NewInstance("desktop")
	_, err := in.Receive(RenderMarkers("desktop", []Marker{
		{ID: "cmt_open", X: 50, Y: 50, Count: 1},
		{ID: "cmt_done", X: 10, Y: 90, Resolved: true, Count: 4},
	}))
	require.NoError(t, err)

	placed := in.Layout(coords.Size{Width: 1000, Height: 2000})
	require.Len(t, placed, 2)
	assert.Equal(t, 500.0, placed[0].Left)
	assert.Equal(t, 1000.0, placed[0].Top)
	assert.Equal(t, ColorOpen, placed[0].Color)
	assert.Equal(t, SingleLabel, placed[0].Label)
	assert.Equal(t, ColorResolved, placed[1].Color)
	assert.Equal(t, "4", placed[1].Label)

	// Same percentages follow the page when it grows.
	grown := in.Layout(coords.Size{Width: 1000, Height: 3000})
	assert.Equal(t, 1500.0, grown[0].Top)

	_, err = in.Receive(ClearMarkers("desktop"))
	require.NoError(t, err)
	assert.Empty(t, in.Layout(coords.Size{Width: 1, Height: 1}))
}
