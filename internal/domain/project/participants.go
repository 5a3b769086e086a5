package project

import (
	"context"
	"strings"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Participant roles.
const (
	RoleOwner        = "owner"
	RoleCollaborator = "collaborator"
	RoleGuest        = "guest"
)

// Member is one entry of the participant set.
type Member struct {
	UserID     string     `json:"userId,omitempty"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Role       string     `json:"role"`
	AccessedAt *time.Time `json:"accessedAt,omitempty"`
}

// Participants derives the participant set: owner, collaborators and share
// guests, deduplicated by user id and then email.
func (m *Manager) Participants(ctx context.Context, who *types.Identity, projectID string) ([]Member, error) {
	p, err := m.Get(ctx, who, projectID)
	if err != nil {
		return nil, err
	}

	ids := append([]string{p.Owner}, p.Collaborators...)
	users, err := m.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]*types.User, len(users))
	for _, u := range users {
		known[u.ID] = u
	}

	out := make([]Member, 0, len(ids)+len(p.Participants))
	seenID := map[string]bool{}
	seenEmail := map[string]bool{}
	add := func(mb Member) {
		if mb.UserID != "" && seenID[mb.UserID] {
			return
		}
		email := strings.ToLower(mb.Email)
		if email != "" && seenEmail[email] {
			return
		}
		if mb.UserID != "" {
			seenID[mb.UserID] = true
		}
		if email != "" {
			seenEmail[email] = true
		}
		out = append(out, mb)
	}

	for i, uid := range ids {
		role := RoleCollaborator
		if i == 0 {
			role = RoleOwner
		}
		mb := Member{UserID: uid, Role: role}
		if u, ok := known[uid]; ok {
			mb.Name, mb.Email = u.Name, u.Email
		}
		add(mb)
	}
	for _, g := range p.Participants {
		accessed := g.AccessedAt
		add(Member{UserID: g.UserID, Name: g.Name, Email: g.Email, Role: RoleGuest, AccessedAt: &accessed})
	}
	return out, nil
}

// UpsertUser registers the caller in the directory used for mentions.
// Fields default to the identity asserted by the credential issuer.
func (m *Manager) UpsertUser(ctx context.Context, who types.Identity, req types.UpsertUserRequest) (*types.User, error) {
	name := strings.TrimSpace(utils.PlainText(req.Name))
	if name == "" {
		name = who.Name
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = who.Email
	}

	u := &types.User{ID: who.ID, Name: name, Email: email}
	err := validation.ValidateStruct(u,
		validation.Field(&u.ID, validation.Required),
		validation.Field(&u.Name, validation.RuneLength(0, utils.MaxNameLength)),
		validation.Field(&u.Email, validation.RuneLength(0, utils.MaxEmailLength), is.EmailFormat),
	)
	if err := utils.AsValidationError(err); err != nil {
		return nil, err
	}

	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	err = m.users.Upsert(ctx, u)
	m.metrics.RecordMutation("user", "upsert", err)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// User loads a directory entry.
func (m *Manager) User(ctx context.Context, userID string) (*types.User, error) {
	return m.users.Get(ctx, userID)
}
