package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EnableShare issues a fresh token and applies req. Owner only.
func (m *Manager) EnableShare(ctx context.Context, who types.Identity, projectID string, req types.ShareRequest) (*types.Project, error) {
	if err := utils.ValidateString(req.Password, "password", 0, utils.MaxPasswordLength, false); err != nil {
		return nil, &types.ValidationError{Fields: map[string]string{"password": err.Error()}}
	}
	if req.ExpiresIn < 0 {
		return nil, &types.ValidationError{Fields: map[string]string{"expiresIn": "must not be negative"}}
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}
	var hash string
	if req.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash share password: %w", err)
		}
		hash = string(b)
	}

	p, err := m.projects.Update(ctx, projectID, func(p *types.Project) error {
		if !p.IsOwner(who.ID) {
			return types.ErrForbidden
		}
		now := m.now()
		s := types.ShareSettings{
			Enabled:            true,
			Token:              token,
			PasswordHash:       hash,
			AllowGuestComments: boolOr(req.AllowGuestComments, true),
			AllowGuestDrawing:  boolOr(req.AllowGuestDrawing, false),
			RequireName:        boolOr(req.RequireName, true),
		}
		if req.ExpiresIn > 0 {
			exp := now.Add(time.Duration(req.ExpiresIn) * 24 * time.Hour)
			s.ExpiresAt = &exp
		}
		p.Share = s
		p.UpdatedAt = now
		return nil
	})
	m.metrics.RecordMutation("project", "share", err)
	if err != nil {
		return nil, err
	}
	m.log.Info("share link enabled", zap.String("project_id", projectID), zap.Bool("password", hash != ""))
	return p, nil
}

// ShareSettings returns the project so the caller can read its share block. Owner only.
func (m *Manager) ShareSettings(ctx context.Context, who types.Identity, projectID string) (*types.Project, error) {
	p, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsOwner(who.ID) {
		return nil, types.ErrForbidden
	}
	return p, nil
}

// DisableShare revokes the link and its token. Owner only.
func (m *Manager) DisableShare(ctx context.Context, who types.Identity, projectID string) (*types.Project, error) {
	p, err := m.projects.Update(ctx, projectID, func(p *types.Project) error {
		if !p.IsOwner(who.ID) {
			return types.ErrForbidden
		}
		p.Share.Enabled = false
		p.Share.Token = ""
		p.Share.PasswordHash = ""
		p.UpdatedAt = m.now()
		return nil
	})
	m.metrics.RecordMutation("project", "unshare", err)
	return p, err
}

// VerifyShare checks a token and password without recording a visit.
func (m *Manager) VerifyShare(ctx context.Context, token, password string) (*types.Project, error) {
	p, err := m.projects.FindByShareToken(ctx, token)
	if isNotFound(err) {
		return nil, types.ErrShareExpired
	}
	if err != nil {
		return nil, err
	}
	if !p.Share.Valid(m.now()) {
		return nil, types.ErrShareExpired
	}
	if p.Share.PasswordHash == "" {
		return p, nil
	}
	if password == "" {
		return nil, types.ErrPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.Share.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, types.ErrPasswordInvalid
		}
		return nil, fmt.Errorf("verify share password: %w", err)
	}
	return p, nil
}

// OpenShare verifies the link and records the visitor as a participant.
// Recording is best effort; a failure is logged and the project still returned.
func (m *Manager) OpenShare(ctx context.Context, token, password string, visitor *types.Identity, guestName string) (*types.Project, error) {
	p, err := m.VerifyShare(ctx, token, password)
	if err != nil {
		return nil, err
	}

	visit, ok := participantFor(visitor, guestName, m.now())
	if !ok || (visitor != nil && p.IsMember(visitor.ID)) {
		return p, nil
	}
	updated, err := m.projects.Update(ctx, p.ID, func(p *types.Project) error {
		p.Participants = recordVisit(p.Participants, visit)
		return nil
	})
	if err != nil {
		m.log.Warn("record share participant", zap.String("project_id", p.ID), zap.Error(err))
		return p, nil
	}
	return updated, nil
}

func participantFor(visitor *types.Identity, guestName string, now time.Time) (types.Participant, bool) {
	if visitor != nil && visitor.ID != "" {
		return types.Participant{UserID: visitor.ID, Name: visitor.Name, Email: visitor.Email, AccessedAt: now}, true
	}
	if name := strings.TrimSpace(utils.PlainText(guestName)); name != "" {
		return types.Participant{Name: name, AccessedAt: now}, true
	}
	return types.Participant{}, false
}

// recordVisit refreshes a known participant or appends a new one. Entries
// match by user id, then email, then (for anonymous guests) name.
func recordVisit(list []types.Participant, v types.Participant) []types.Participant {
	for i, p := range list {
		same := (v.UserID != "" && p.UserID == v.UserID) ||
			(v.Email != "" && strings.EqualFold(p.Email, v.Email)) ||
			(v.UserID == "" && p.UserID == "" && v.Email == "" && strings.EqualFold(p.Name, v.Name))
		if same {
			list[i].AccessedAt = v.AccessedAt
			if v.Name != "" {
				list[i].Name = v.Name
			}
			return list
		}
	}
	return append(list, v)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
