package project

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/id"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

// shareTokenBytes is the entropy of a share link token before hex encoding.
const shareTokenBytes = 16

// Store persists projects.
type Store interface {
	Create(ctx context.Context, p *types.Project) error
	Get(ctx context.Context, id string) (*types.Project, error)
	Update(ctx context.Context, id string, fn func(*types.Project) error) (*types.Project, error)
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string) ([]*types.Project, error)
	FindByShareToken(ctx context.Context, token string) (*types.Project, error)
}

// ReviewPurger removes a deleted project's reviews.
type ReviewPurger interface {
	DeleteByProject(ctx context.Context, projectID string) ([]string, error)
}

// Users is the user directory.
type Users interface {
	Upsert(ctx context.Context, u *types.User) error
	Get(ctx context.Context, id string) (*types.User, error)
	GetMany(ctx context.Context, ids []string) ([]*types.User, error)
}

// Manager implements project operations.
type Manager struct {
	projects Store
	reviews  ReviewPurger
	users    Users
	metrics  *monitoring.Metrics
	log      *logging.Logger
	now      func() time.Time
}

// NewManager creates a project manager.
func NewManager(projects Store, reviews ReviewPurger, users Users, metrics *monitoring.Metrics, log *logging.Logger) *Manager {
	return &Manager{
		projects: projects,
		reviews:  reviews,
		users:    users,
		metrics:  metrics,
		log:      log.Component("project"),
		now:      time.Now,
	}
}

// Load returns a project without access checks, for internal callers.
func (m *Manager) Load(ctx context.Context, projectID string) (*types.Project, error) {
	return m.projects.Get(ctx, projectID)
}

// CanRead reports whether who may read p.
func CanRead(p *types.Project, who *types.Identity) bool {
	if p.IsPublic {
		return true
	}
	return who != nil && p.IsMember(who.ID)
}

// Create stores a new project owned by who.
func (m *Manager) Create(ctx context.Context, who types.Identity, req types.ProjectRequest) (*types.Project, error) {
	if err := validateRequest(req, true); err != nil {
		return nil, err
	}

	now := m.now()
	p := &types.Project{
		ID:            string(id.NewProjectID()),
		Name:          strings.TrimSpace(req.Name),
		URL:           req.URL,
		Owner:         who.ID,
		Collaborators: dedupe(req.Collaborators, who.ID),
		Participants:  []types.Participant{},
		Breakpoints:   req.Breakpoints,
		Canvas:        types.DefaultCanvas(),
		Share:         types.ShareSettings{AllowGuestComments: true, RequireName: true},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if len(p.Breakpoints) == 0 {
		p.Breakpoints = types.DefaultBreakpoints()
	}
	if req.Canvas != nil {
		p.Canvas = *req.Canvas
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}

	err := m.projects.Create(ctx, p)
	m.metrics.RecordMutation("project", "create", err)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	m.log.Info("project created", zap.String("project_id", p.ID), zap.String("owner", who.ID))
	return p, nil
}

// Get returns a project who may read.
func (m *Manager) Get(ctx context.Context, who *types.Identity, projectID string) (*types.Project, error) {
	p, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !CanRead(p, who) {
		return nil, types.ErrForbidden
	}
	return p, nil
}

// List returns the projects who owns or collaborates on.
func (m *Manager) List(ctx context.Context, who types.Identity) ([]*types.Project, error) {
	return m.projects.ListForUser(ctx, who.ID)
}

// Update applies the non-empty fields of req. Owner only.
func (m *Manager) Update(ctx context.Context, who types.Identity, projectID string, req types.ProjectRequest) (*types.Project, error) {
	if err := validateRequest(req, false); err != nil {
		return nil, err
	}
	p, err := m.projects.Update(ctx, projectID, func(p *types.Project) error {
		if !p.IsOwner(who.ID) {
			return types.ErrForbidden
		}
		if name := strings.TrimSpace(req.Name); name != "" {
			p.Name = name
		}
		if req.URL != "" {
			p.URL = req.URL
		}
		if len(req.Breakpoints) > 0 {
			p.Breakpoints = req.Breakpoints
		}
		if req.Canvas != nil {
			p.Canvas = *req.Canvas
		}
		if req.Collaborators != nil {
			p.Collaborators = dedupe(req.Collaborators, p.Owner)
		}
		if req.IsPublic != nil {
			p.IsPublic = *req.IsPublic
		}
		p.UpdatedAt = m.now()
		return nil
	})
	m.metrics.RecordMutation("project", "update", err)
	return p, err
}

// Delete removes a project and its reviews. Owner only.
func (m *Manager) Delete(ctx context.Context, who types.Identity, projectID string) error {
	p, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if !p.IsOwner(who.ID) {
		return types.ErrForbidden
	}

	err = m.projects.Delete(ctx, projectID)
	m.metrics.RecordMutation("project", "delete", err)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if _, err := m.reviews.DeleteByProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete reviews of project %s: %w", projectID, err)
	}
	return nil
}

func validateRequest(req types.ProjectRequest, create bool) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.When(create, validation.Required), validation.RuneLength(0, utils.MaxNameLength), utils.NoNullBytes),
		validation.Field(&req.URL, validation.When(create, validation.Required), utils.HTTPURL),
		validation.Field(&req.Breakpoints, validation.Each(validation.By(validateBreakpoint))),
	)
	return utils.AsValidationError(err)
}

func validateBreakpoint(value interface{}) error {
	bp, _ := value.(types.Breakpoint)
	return validation.ValidateStruct(&bp,
		validation.Field(&bp.Name, validation.Required, validation.RuneLength(1, utils.MaxBreakpointLength)),
		validation.Field(&bp.Width, validation.Required, validation.Min(1), validation.Max(10000)),
		validation.Field(&bp.Height, validation.Required, validation.Min(1), validation.Max(10000)),
		validation.Field(&bp.Browser, validation.In(types.BrowserChromium, types.BrowserFirefox, types.BrowserWebkit, types.BrowserEdge)),
	)
}

// dedupe drops blanks, duplicates and the owner from collaborator ids.
func dedupe(ids []string, owner string) []string {
	out := []string{}
	seen := map[string]bool{owner: true, "": true}
	for _, v := range ids {
		v = strings.TrimSpace(v)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func newShareToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
