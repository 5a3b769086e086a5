package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/notify"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/realtime"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/id"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"go.uber.org/zap"
)

// Store persists comments.
type Store interface {
	Create(ctx context.Context, c *types.Comment) error
	Get(ctx context.Context, id string) (*types.Comment, error)
	List(ctx context.Context, f types.CommentFilter) ([]*types.Comment, error)
	Update(ctx context.Context, id string, fn func(*types.Comment) error) (*types.Comment, error)
	Delete(ctx context.Context, id string) error
	DeleteByURL(ctx context.Context, url string) ([]string, error)
}

// Projects loads the project a comment belongs to, for mention scoping.
type Projects interface {
	Get(ctx context.Context, id string) (*types.Project, error)
}

// Mentions resolves @-mentions in text to users.
type Mentions interface {
	Resolve(ctx context.Context, project *types.Project, text, authorID string) ([]*types.User, error)
}

// Broadcaster fans an event out to a room.
type Broadcaster interface {
	Broadcast(room, event string, data any)
}

// Deps groups the collaborators of a Manager.
type Deps struct {
	Comments Store
	Projects Projects
	Mentions Mentions
	Notifier notify.Dispatcher
	Hub      Broadcaster
	Metrics  *monitoring.Metrics
	Logger   *logging.Logger
}

// Manager implements comment operations.
type Manager struct {
	comments Store
	projects Projects
	mentions Mentions
	notifier notify.Dispatcher
	hub      Broadcaster
	metrics  *monitoring.Metrics
	log      *logging.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

// NewManager creates a comment manager.
func NewManager(d Deps) *Manager {
	log := d.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Manager{
		comments: d.Comments,
		projects: d.Projects,
		mentions: d.Mentions,
		notifier: d.Notifier,
		hub:      d.Hub,
		metrics:  d.Metrics,
		log:      log.Component("comment"),
		now:      time.Now,
	}
}

// Wait blocks until in-flight mention notifications have been dispatched.
func (m *Manager) Wait() {
	m.pending.Wait()
}

// List returns matching comments, newest first.
func (m *Manager) List(ctx context.Context, f types.CommentFilter) ([]*types.Comment, error) {
	return m.comments.List(ctx, f)
}

// Get loads one comment.
func (m *Manager) Get(ctx context.Context, commentID string) (*types.Comment, error) {
	return m.comments.Get(ctx, commentID)
}

// Create stores a new comment. who may be nil for anonymous callers.
func (m *Manager) Create(ctx context.Context, who *types.Identity, req types.CreateCommentRequest) (*types.Comment, error) {
	in, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	now := m.now()
	pos := coords.Percent{X: *req.X, Y: *req.Y}.Clamp()
	c := &types.Comment{
		ID:          string(id.NewCommentID()),
		URL:         req.URL,
		X:           pos.X,
		Y:           pos.Y,
		Breakpoint:  in.breakpoint,
		Text:        in.text,
		Author:      authorName(in.author, who),
		ProjectID:   req.ProjectID,
		Replies:     []types.Reply{},
		TaggedUsers: []string{},
		Metadata:    req.Metadata,
		Timestamp:   now.UnixMilli(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if who != nil {
		c.UserID = who.ID
	}

	tagged := m.resolveMentions(ctx, c.ProjectID, c.Text, c.UserID)
	c.TaggedUsers = userIDs(tagged)

	err = m.comments.Create(ctx, c)
	m.metrics.RecordMutation("comment", "create", err)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	m.log.Info("comment created",
		append(tracing.Fields(ctx),
			zap.String("comment_id", c.ID),
			zap.String("breakpoint", c.Breakpoint),
			zap.Int("mentions", len(tagged)))...)
	m.notify(ctx, tagged, c, c.Author, c.Text, false)
	m.broadcast(c, realtime.EventCommentAdded, c)
	return c, nil
}

// Update applies a text edit and/or resolution change. Last write wins.
func (m *Manager) Update(ctx context.Context, commentID string, req types.UpdateCommentRequest) (*types.Comment, error) {
	text, err := validateUpdate(req)
	if err != nil {
		return nil, err
	}
	c, err := m.comments.Update(ctx, commentID, func(c *types.Comment) error {
		if req.Text != nil {
			c.Text = text
		}
		if req.Resolved != nil {
			c.Resolved = *req.Resolved
		}
		c.UpdatedAt = m.now()
		return nil
	})
	m.metrics.RecordMutation("comment", "update", err)
	if err != nil {
		return nil, err
	}
	m.broadcast(c, realtime.EventCommentUpdated, c)
	return c, nil
}

// AttachScreenshot writes a screenshot reference into the comment's
// metadata. The write is addressed by id only, so a capture that finishes
// late still lands on the right comment.
func (m *Manager) AttachScreenshot(ctx context.Context, commentID, ref string) (*types.Comment, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &types.ValidationError{Fields: map[string]string{"screenshot": "Screenshot URL required"}}
	}
	c, err := m.comments.Update(ctx, commentID, func(c *types.Comment) error {
		if c.Metadata == nil {
			c.Metadata = &types.CaptureMetadata{}
		}
		c.Metadata.Screenshot = ref
		c.UpdatedAt = m.now()
		return nil
	})
	m.metrics.RecordMutation("comment", "screenshot", err)
	if err != nil {
		return nil, err
	}
	m.broadcast(c, realtime.EventCommentUpdated, c)
	return c, nil
}

// Delete removes one comment with its replies.
func (m *Manager) Delete(ctx context.Context, commentID string) error {
	c, err := m.comments.Get(ctx, commentID)
	if err != nil {
		return err
	}
	err = m.comments.Delete(ctx, commentID)
	m.metrics.RecordMutation("comment", "delete", err)
	if err != nil {
		return err
	}
	m.broadcast(c, realtime.EventCommentDeleted, deleted{ID: c.ID})
	return nil
}

// AddReply appends a reply to a thread and notifies anyone it mentions.
func (m *Manager) AddReply(ctx context.Context, who *types.Identity, commentID string, req types.ReplyRequest) (*types.Reply, *types.Comment, error) {
	in, err := validateReply(req)
	if err != nil {
		return nil, nil, err
	}

	parent, err := m.comments.Get(ctx, commentID)
	if err != nil {
		return nil, nil, err
	}
	var authorID string
	if who != nil {
		authorID = who.ID
	}
	tagged := m.resolveMentions(ctx, parent.ProjectID, in.text, authorID)

	r := types.Reply{
		ID:          string(id.NewReplyID()),
		Text:        in.text,
		Author:      authorName(in.author, who),
		Image:       in.image,
		TaggedUsers: userIDs(tagged),
		Timestamp:   m.now(),
	}
	c, err := m.comments.Update(ctx, commentID, func(c *types.Comment) error {
		c.Replies = append(c.Replies, r)
		c.UpdatedAt = r.Timestamp
		return nil
	})
	m.metrics.RecordMutation("comment", "reply", err)
	if err != nil {
		return nil, nil, err
	}

	m.notify(ctx, tagged, c, r.Author, r.Text, true)
	m.broadcast(c, realtime.EventCommentUpdated, c)
	return &r, c, nil
}

// DeleteByURL removes every comment on url and reports how many went.
func (m *Manager) DeleteByURL(ctx context.Context, url string) (int, error) {
	if strings.TrimSpace(url) == "" {
		return 0, &types.ValidationError{Fields: map[string]string{"url": "URL is required"}}
	}
	ids, err := m.comments.DeleteByURL(ctx, url)
	m.metrics.RecordMutation("comment", "delete_by_url", err)
	if err != nil {
		return 0, err
	}
	for _, cid := range ids {
		m.hub.Broadcast(url, realtime.EventCommentDeleted, deleted{ID: cid})
	}
	m.log.Info("comments deleted by url", zap.String("url", url), zap.Int("count", len(ids)))
	return len(ids), nil
}

type deleted struct {
	ID string `json:"id"`
}

// broadcast mirrors a persisted mutation to the URL room and, for project
// comments, to the project room.
func (m *Manager) broadcast(c *types.Comment, event string, data any) {
	if m.hub == nil {
		return
	}
	m.hub.Broadcast(c.URL, event, data)
	if c.ProjectID != "" {
		m.hub.Broadcast(realtime.ProjectRoom(c.ProjectID), event, data)
	}
}

// resolveMentions never fails the surrounding write: comments outside a
// project, unknown projects and directory errors resolve to no recipients.
func (m *Manager) resolveMentions(ctx context.Context, projectID, text, authorID string) []*types.User {
	if m.mentions == nil || m.projects == nil || projectID == "" || !strings.Contains(text, "@") {
		return nil
	}
	project, err := m.projects.Get(ctx, projectID)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrNotFound):
		return nil
	default:
		m.log.Warn("load project for mentions", zap.String("project_id", projectID), zap.Error(err))
		return nil
	}
	users, err := m.mentions.Resolve(ctx, project, text, authorID)
	if err != nil {
		m.log.Warn("resolve mentions", zap.Error(err))
		return nil
	}
	return users
}

// notify dispatches mention notifications in the background. The caller's
// cancellation does not abort delivery once the write has succeeded.
func (m *Manager) notify(ctx context.Context, users []*types.User, c *types.Comment, author, text string, isReply bool) {
	if m.notifier == nil || len(users) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	now := m.now()

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		sent := 0
		for _, u := range users {
			n := notify.Notification{
				Kind:      notify.KindMention,
				Recipient: *u,
				Author:    author,
				Text:      text,
				URL:       c.URL,
				ProjectID: c.ProjectID,
				CommentID: c.ID,
				IsReply:   isReply,
				CreatedAt: now,
			}
			if err := m.notifier.Dispatch(ctx, n); err != nil {
				m.log.Warn("dispatch mention", zap.String("recipient", u.ID), zap.String("comment_id", c.ID), zap.Error(err))
				continue
			}
			sent++
		}
		m.metrics.AddMentions(sent)
	}()
}

func authorName(requested string, who *types.Identity) string {
	if requested != "" {
		return requested
	}
	if who != nil && who.Name != "" {
		return who.Name
	}
	return types.AnonymousAuthor
}

func userIDs(users []*types.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}
