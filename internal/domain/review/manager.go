// Package review implements freeform canvas annotations bound to one
// breakpoint frame of a project. Positions are canvas-local unscaled
// pixels; every mutation is mirrored to the project room.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/realtime"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/id"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

// Store persists reviews.
type Store interface {
	Create(ctx context.Context, r *types.Review) error
	Get(ctx context.Context, id string) (*types.Review, error)
	ListByProject(ctx context.Context, projectID string) ([]*types.Review, error)
	Update(ctx context.Context, id string, fn func(*types.Review) error) (*types.Review, error)
	Delete(ctx context.Context, id string) error
}

// Projects loads the project a review belongs to.
type Projects interface {
	Get(ctx context.Context, id string) (*types.Project, error)
}

// Broadcaster fans an event out to a room.
type Broadcaster interface {
	Broadcast(room, event string, data any)
}

// Manager implements review operations.
type Manager struct {
	reviews  Store
	projects Projects
	hub      Broadcaster
	metrics  *monitoring.Metrics
	log      *logging.Logger
	now      func() time.Time
}

// NewManager creates a review manager.
func NewManager(reviews Store, projects Projects, hub Broadcaster, metrics *monitoring.Metrics, log *logging.Logger) *Manager {
	return &Manager{
		reviews:  reviews,
		projects: projects,
		hub:      hub,
		metrics:  metrics,
		log:      log.Component("review"),
		now:      time.Now,
	}
}

// ListByProject returns a project's reviews, newest first.
func (m *Manager) ListByProject(ctx context.Context, who types.Identity, projectID string) ([]*types.Review, error) {
	if _, err := m.readable(ctx, who, projectID); err != nil {
		return nil, err
	}
	return m.reviews.ListByProject(ctx, projectID)
}

// Create stores a review made by one pointer gesture.
func (m *Manager) Create(ctx context.Context, who types.Identity, req types.CreateReviewRequest) (*types.Review, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	p, err := m.readable(ctx, who, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if *req.BreakpointIndex >= len(p.Breakpoints) {
		return nil, &types.ValidationError{Fields: map[string]string{
			"breakpointIndex": fmt.Sprintf("project has %d breakpoints", len(p.Breakpoints)),
		}}
	}

	now := m.now()
	r := &types.Review{
		ID:              string(id.NewReviewID()),
		ProjectID:       p.ID,
		BreakpointIndex: *req.BreakpointIndex,
		Type:            req.Type,
		Position:        req.Position.Normalize(),
		Color:           req.Color,
		CreatedBy:       who.ID,
		Comments:        []types.ReviewComment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if r.Color == "" {
		r.Color = types.DefaultReviewColor
	}

	switch r.Type {
	case types.ReviewPoint:
		r.Position.Width, r.Position.Height = 0, 0
	case types.ReviewDrawing:
		stroke, err := coords.ParseDrawing(req.Drawing)
		if err != nil || len(stroke) == 0 {
			return nil, &types.ValidationError{Fields: map[string]string{"drawing": "must be a non-empty list of points"}}
		}
		r.Drawing = req.Drawing
	}

	err = m.reviews.Create(ctx, r)
	m.metrics.RecordMutation("review", "create", err)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	m.log.Info("review created",
		zap.String("review_id", r.ID),
		zap.String("project_id", r.ProjectID),
		zap.String("type", string(r.Type)))
	m.hub.Broadcast(realtime.ProjectRoom(r.ProjectID), realtime.EventReviewAdded, r)
	return r, nil
}

// AddComment appends a discussion entry.
func (m *Manager) AddComment(ctx context.Context, who types.Identity, reviewID string, req types.ReviewCommentRequest) (*types.Review, error) {
	text := utils.PlainText(req.Text)
	err := validation.Errors{
		"text": validation.Validate(text, validation.Required.Error("Text is required"), validation.RuneLength(0, utils.MaxCommentLength)),
	}.Filter()
	if err := utils.AsValidationError(err); err != nil {
		return nil, err
	}
	if _, err := m.accessible(ctx, who, reviewID); err != nil {
		return nil, err
	}

	entry := types.ReviewComment{
		ID:        string(id.NewReplyID()),
		User:      who.ID,
		Text:      text,
		CreatedAt: m.now(),
	}
	r, err := m.reviews.Update(ctx, reviewID, func(r *types.Review) error {
		r.Comments = append(r.Comments, entry)
		r.UpdatedAt = entry.CreatedAt
		return nil
	})
	m.metrics.RecordMutation("review", "comment", err)
	if err != nil {
		return nil, err
	}
	m.hub.Broadcast(realtime.ProjectRoom(r.ProjectID), realtime.EventReviewUpdated, r)
	return r, nil
}

// ToggleResolve flips the resolved flag. Concurrent toggles are last-write-wins.
func (m *Manager) ToggleResolve(ctx context.Context, who types.Identity, reviewID string) (*types.Review, error) {
	if _, err := m.accessible(ctx, who, reviewID); err != nil {
		return nil, err
	}
	r, err := m.reviews.Update(ctx, reviewID, func(r *types.Review) error {
		r.Resolved = !r.Resolved
		r.UpdatedAt = m.now()
		return nil
	})
	m.metrics.RecordMutation("review", "resolve", err)
	if err != nil {
		return nil, err
	}
	m.hub.Broadcast(realtime.ProjectRoom(r.ProjectID), realtime.EventReviewUpdated, r)
	return r, nil
}

// Delete removes a review. Only its creator or the project owner may.
func (m *Manager) Delete(ctx context.Context, who types.Identity, reviewID string) error {
	r, err := m.reviews.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.CreatedBy != who.ID {
		p, err := m.projects.Get(ctx, r.ProjectID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if p == nil || !p.IsOwner(who.ID) {
			return types.ErrForbidden
		}
	}

	err = m.reviews.Delete(ctx, reviewID)
	m.metrics.RecordMutation("review", "delete", err)
	if err != nil {
		return err
	}
	m.hub.Broadcast(realtime.ProjectRoom(r.ProjectID), realtime.EventReviewDeleted, map[string]string{"id": r.ID})
	return nil
}

// readable loads a project the caller can see. Public projects are open to
// any authenticated caller.
func (m *Manager) readable(ctx context.Context, who types.Identity, projectID string) (*types.Project, error) {
	p, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic && !p.IsMember(who.ID) {
		return nil, types.ErrForbidden
	}
	return p, nil
}

func (m *Manager) accessible(ctx context.Context, who types.Identity, reviewID string) (*types.Review, error) {
	r, err := m.reviews.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if _, err := m.readable(ctx, who, r.ProjectID); err != nil {
		return nil, err
	}
	return r, nil
}

func validateCreate(req types.CreateReviewRequest) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.ProjectID, validation.Required, validation.RuneLength(1, utils.MaxIDLength)),
		validation.Field(&req.BreakpointIndex, validation.NotNil, validation.Min(0)),
		validation.Field(&req.Type, validation.Required, validation.In(types.ReviewPoint, types.ReviewArea, types.ReviewDrawing)),
		validation.Field(&req.Drawing,
			validation.When(req.Type == types.ReviewDrawing, validation.Required),
			validation.RuneLength(0, utils.MaxDrawingLength)),
		validation.Field(&req.Color, utils.Color),
	)
	return utils.AsValidationError(err)
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
