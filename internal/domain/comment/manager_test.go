package comment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/mention"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/notify"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/realtime"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = "https://example.com/pricing"

type sent struct {
	room  string
	event string
	data  any
}

type recordingHub struct {
	mu     sync.Mutex
	events []sent
}

func (h *recordingHub) Broadcast(room, event string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, sent{room, event, data})
}

func (h *recordingHub) rooms(event string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		if e.event == event {
			out = append(out, e.room)
		}
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (n *recordingNotifier) Dispatch(_ context.Context, note notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, note)
	return nil
}

type fixture struct {
	m        *Manager
	store    *storage.Store
	hub      *recordingHub
	notifier *recordingNotifier
	project  *types.Project
}

func setup(t *testing.T) *fixture {
	t.Helper()
	s, err := storage.Open(storage.Options{InMemory: true, Logger: logging.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	for _, u := range []*types.User{
		{ID: "usr_ana", Name: "Ana Lopez", Email: "ana@example.com"},
		{ID: "usr_bo", Name: "Bo", Email: "bo@example.com"},
		{ID: "usr_cy", Name: "Cy", Email: "cy@example.com"},
	} {
		require.NoError(t, s.Users.Upsert(ctx, u))
	}
	p := &types.Project{ID: "prj_1", Name: "Site", URL: page, Owner: "usr_ana", Collaborators: []string{"usr_bo"}}
	require.NoError(t, s.Projects.Create(ctx, p))

	f := &fixture{store: s, hub: &recordingHub{}, notifier: &recordingNotifier{}, project: p}
	f.m = NewManager(Deps{
		Comments: s.Comments,
		Projects: s.Projects,
		Mentions: mention.NewResolver(s.Users),
		Notifier: f.notifier,
		Hub:      f.hub,
		Logger:   logging.NewNop(),
	})
	return f
}

func ptr[T any](v T) *T { return &v }

func TestCreateDefaultsAndClamps(t *testing.T) {
	f := setup(t)

	c, err := f.m.Create(context.Background(), nil, types.CreateCommentRequest{
		URL:  page,
		X:    ptr(50.0),
		Y:    ptr(140.0),
		Text: "<b>Fix</b> this",
	})
	require.NoError(t, err)

	assert.Equal(t, 50.0, c.X)
	assert.Equal(t, 100.0, c.Y)
	assert.Equal(t, types.DefaultBreakpoint, c.Breakpoint)
	assert.Equal(t, types.AnonymousAuthor, c.Author)
	assert.Equal(t, "Fix this", c.Text)
	assert.NotZero(t, c.Timestamp)
	assert.Empty(t, c.Replies)
	assert.Equal(t, []string{page}, f.hub.rooms(realtime.EventCommentAdded))

	stored, err := f.m.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Text, stored.Text)
}

func TestCreateAuthorFromIdentity(t *testing.T) {
	f := setup(t)
	who := &types.Identity{ID: "usr_cy", Name: "Cy"}

	c, err := f.m.Create(context.Background(), who, types.CreateCommentRequest{URL: page, X: ptr(1.0), Y: ptr(2.0), Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Cy", c.Author)
	assert.Equal(t, "usr_cy", c.UserID)

	c, err = f.m.Create(context.Background(), who, types.CreateCommentRequest{URL: page, X: ptr(1.0), Y: ptr(2.0), Text: "hi", Author: "Guest"})
	require.NoError(t, err)
	assert.Equal(t, "Guest", c.Author)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name  string
		req   types.CreateCommentRequest
		field string
	}{
		{"missing url", types.CreateCommentRequest{X: ptr(1.0), Y: ptr(1.0), Text: "t"}, "url"},
		{"bad url", types.CreateCommentRequest{URL: "javascript:alert(1)", X: ptr(1.0), Y: ptr(1.0), Text: "t"}, "url"},
		{"missing x", types.CreateCommentRequest{URL: page, Y: ptr(1.0), Text: "t"}, "x"},
		{"missing y", types.CreateCommentRequest{URL: page, X: ptr(1.0), Text: "t"}, "y"},
		{"missing text", types.CreateCommentRequest{URL: page, X: ptr(1.0), Y: ptr(1.0)}, "text"},
		{"markup only", types.CreateCommentRequest{URL: page, X: ptr(1.0), Y: ptr(1.0), Text: "<img src=x>"}, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.Create(context.Background(), nil, tt.req)
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
	assert.Empty(t, f.hub.rooms(realtime.EventCommentAdded))
}

func TestProjectCommentBroadcastsToBothRooms(t *testing.T) {
	f := setup(t)

	_, err := f.m.Create(context.Background(), nil, types.CreateCommentRequest{
		URL: page, X: ptr(1.0), Y: ptr(1.0), Text: "t", ProjectID: f.project.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{page, realtime.ProjectRoom(f.project.ID)}, f.hub.rooms(realtime.EventCommentAdded))
}

func TestMentionsNotifyMembersExceptAuthor(t *testing.T) {
	f := setup(t)
	who := &types.Identity{ID: "usr_ana", Name: "Ana Lopez"}

	c, err := f.m.Create(context.Background(), who, types.CreateCommentRequest{
		URL: page, X: ptr(1.0), Y: ptr(1.0), ProjectID: f.project.ID,
		Text: "@bo @BO @ana @cy @nobody please look",
	})
	require.NoError(t, err)
	f.m.Wait()

	assert.Equal(t, []string{"usr_bo"}, c.TaggedUsers, "cy is not a member and ana is the author")
	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, notify.KindMention, n.Kind)
	assert.Equal(t, "usr_bo", n.Recipient.ID)
	assert.Equal(t, c.ID, n.CommentID)
	assert.False(t, n.IsReply)
}

func TestMentionsOutsideProjectNotifyNobody(t *testing.T) {
	f := setup(t)

	c, err := f.m.Create(context.Background(), nil, types.CreateCommentRequest{
		URL: page, X: ptr(1.0), Y: ptr(1.0), Text: "@bo@example.com @cy look",
	})
	require.NoError(t, err)
	f.m.Wait()

	assert.Empty(t, c.TaggedUsers)
	assert.Empty(t, f.notifier.sent)
}

func TestNotifyFailureDoesNotFailWrite(t *testing.T) {
	f := setup(t)
	f.notifier.err = errors.New("smtp down")

	c, err := f.m.Create(context.Background(), nil, types.CreateCommentRequest{
		URL: page, X: ptr(1.0), Y: ptr(1.0), ProjectID: f.project.ID, Text: "@bo@example.com",
	})
	require.NoError(t, err)
	f.m.Wait()
	assert.Equal(t, []string{"usr_bo"}, c.TaggedUsers)
}

func TestUpdateLastWriteWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c, err := f.m.Create(ctx, nil, types.CreateCommentRequest{URL: page, X: ptr(1.0), Y: ptr(1.0), Text: "t"})
	require.NoError(t, err)

	_, err = f.m.Update(ctx, c.ID, types.UpdateCommentRequest{Resolved: ptr(true)})
	require.NoError(t, err)
	got, err := f.m.Update(ctx, c.ID, types.UpdateCommentRequest{Resolved: ptr(false), Text: ptr("edited")})
	require.NoError(t, err)
	assert.False(t, got.Resolved)
	assert.Equal(t, "edited", got.Text)
	assert.Len(t, f.hub.rooms(realtime.EventCommentUpdated), 2)

	_, err = f.m.Update(ctx, "cmt_missing", types.UpdateCommentRequest{Resolved: ptr(true)})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = f.m.Update(ctx, c.ID, types.UpdateCommentRequest{Text: ptr("  ")})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestAttachScreenshotIsKeyedByID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.m.Create(ctx, nil, types.CreateCommentRequest{URL: page, X: ptr(1.0), Y: ptr(1.0), Text: "first"})
	require.NoError(t, err)
	second, err := f.m.Create(ctx, nil, types.CreateCommentRequest{
		URL: page, X: ptr(1.0), Y: ptr(1.0), Text: "second",
		Metadata: &types.CaptureMetadata{PageTitle: "Pricing"},
	})
	require.NoError(t, err)

	_, err = f.m.AttachScreenshot(ctx, first.ID, "/uploads/screenshots/a.jpg")
	require.NoError(t, err)
	got, err := f.m.AttachScreenshot(ctx, second.ID, "/uploads/screenshots/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Pricing", got.Metadata.PageTitle)

	a, err := f.m.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/screenshots/a.jpg", a.Metadata.Screenshot)

	_, err = f.m.AttachScreenshot(ctx, first.ID, "")
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Screenshot URL required", verr.Fields["screenshot"])
}

func TestReplies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c, err := f.m.Create(ctx, nil, types.CreateCommentRequest{URL: page, X: ptr(1.0), Y: ptr(1.0), Text: "t", ProjectID: f.project.ID})
	require.NoError(t, err)

	r, updated, err := f.m.AddReply(ctx, &types.Identity{ID: "usr_bo", Name: "Bo"}, c.ID, types.ReplyRequest{Text: "done @Ana", Image: "/uploads/screenshots/x.png"})
	require.NoError(t, err)
	f.m.Wait()

	assert.Equal(t, "Bo", r.Author)
	assert.Equal(t, []string{"usr_ana"}, r.TaggedUsers)
	require.Len(t, updated.Replies, 1)
	assert.Equal(t, r.ID, updated.Replies[0].ID)
	require.Len(t, f.notifier.sent, 1)
	assert.True(t, f.notifier.sent[0].IsReply)

	_, _, err = f.m.AddReply(ctx, nil, c.ID, types.ReplyRequest{})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, _, err = f.m.AddReply(ctx, nil, "cmt_missing", types.ReplyRequest{Text: "x"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteAndDeleteByURL(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		c, err := f.m.Create(ctx, nil, types.CreateCommentRequest{URL: page, X: ptr(1.0), Y: ptr(1.0), Text: "t"})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	other, err := f.m.Create(ctx, nil, types.CreateCommentRequest{URL: "https://example.com/other", X: ptr(1.0), Y: ptr(1.0), Text: "t"})
	require.NoError(t, err)

	require.NoError(t, f.m.Delete(ctx, ids[0]))
	assert.ErrorIs(t, f.m.Delete(ctx, ids[0]), types.ErrNotFound)

	n, err := f.m.DeleteByURL(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.hub.rooms(realtime.EventCommentDeleted), 3)

	left, err := f.m.List(ctx, types.CommentFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, other.ID, left[0].ID)
}
