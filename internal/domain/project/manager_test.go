package project

import (
	"context"
	"testing"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner  = types.Identity{ID: "usr_owner", Name: "Olive Owner", Email: "olive@example.com"}
	collab = types.Identity{ID: "usr_collab", Name: "Carl Collab", Email: "carl@example.com"}
	other  = types.Identity{ID: "usr_other", Name: "Otto", Email: "otto@example.com"}
)

func setupManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	s, err := storage.Open(storage.Options{InMemory: true, Logger: logging.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewManager(s.Projects, s.Reviews, s.Users, nil, logging.NewNop()), s
}

func createProject(t *testing.T, m *Manager) *types.Project {
	t.Helper()
	p, err := m.Create(context.Background(), owner, types.ProjectRequest{
		Name:          "  Landing page ",
		URL:           "https://example.com/",
		Collaborators: []string{collab.ID, owner.ID, collab.ID, ""},
	})
	require.NoError(t, err)
	return p
}

func TestCreateAppliesDefaults(t *testing.T) {
	m, _ := setupManager(t)
	p := createProject(t, m)

	assert.Equal(t, "Landing page", p.Name)
	assert.Equal(t, owner.ID, p.Owner)
	assert.Equal(t, []string{collab.ID}, p.Collaborators)
	assert.Equal(t, types.DefaultBreakpoints(), p.Breakpoints)
	assert.Equal(t, types.DefaultCanvas(), p.Canvas)
	assert.True(t, p.Share.AllowGuestComments)
	assert.True(t, p.Share.RequireName)
	assert.False(t, p.Share.Enabled)
}

func TestCreateValidation(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   types.ProjectRequest
		field string
	}{
		{"missing name", types.ProjectRequest{URL: "https://example.com"}, "name"},
		{"bad url", types.ProjectRequest{Name: "x", URL: "ftp://example.com"}, "url"},
		{"bad breakpoint", types.ProjectRequest{Name: "x", URL: "https://example.com", Breakpoints: []types.Breakpoint{{Name: "tiny", Width: 0, Height: 10}}}, "breakpoints"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(ctx, owner, tt.req)
			require.ErrorIs(t, err, types.ErrInvalidInput)
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestAccessRules(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()
	p := createProject(t, m)

	_, err := m.Get(ctx, &collab, p.ID)
	assert.NoError(t, err)
	_, err = m.Get(ctx, &other, p.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)
	_, err = m.Get(ctx, nil, p.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = m.Update(ctx, collab, p.ID, types.ProjectRequest{Name: "hijack"})
	assert.ErrorIs(t, err, types.ErrForbidden)

	public := true
	_, err = m.Update(ctx, owner, p.ID, types.ProjectRequest{IsPublic: &public})
	require.NoError(t, err)
	_, err = m.Get(ctx, nil, p.ID)
	assert.NoError(t, err)

	listed, err := m.List(ctx, collab)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, p.ID, listed[0].ID)
}

func TestDeletePurgesReviews(t *testing.T) {
	m, s := setupManager(t)
	ctx := context.Background()
	p := createProject(t, m)

	require.NoError(t, s.Reviews.Create(ctx, &types.Review{ID: "rev_1", ProjectID: p.ID, Type: types.ReviewPoint}))

	assert.ErrorIs(t, m.Delete(ctx, collab, p.ID), types.ErrForbidden)
	require.NoError(t, m.Delete(ctx, owner, p.ID))

	_, err := m.Load(ctx, p.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	left, err := s.Reviews.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestShareLink(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()
	p := createProject(t, m)

	_, err := m.EnableShare(ctx, collab, p.ID, types.ShareRequest{})
	assert.ErrorIs(t, err, types.ErrForbidden)

	shared, err := m.EnableShare(ctx, owner, p.ID, types.ShareRequest{Password: "hunter2", ExpiresIn: 7})
	require.NoError(t, err)
	token := shared.Share.Token
	require.Len(t, token, 2*shareTokenBytes)
	assert.NotEqual(t, "hunter2", shared.Share.PasswordHash)
	require.NotNil(t, shared.Share.ExpiresAt)
	assert.True(t, shared.Share.AllowGuestComments)
	assert.False(t, shared.Share.AllowGuestDrawing)

	_, err = m.VerifyShare(ctx, token, "")
	assert.ErrorIs(t, err, types.ErrPasswordRequired)
	_, err = m.VerifyShare(ctx, token, "wrong")
	assert.ErrorIs(t, err, types.ErrPasswordInvalid)
	_, err = m.VerifyShare(ctx, "nope", "hunter2")
	assert.ErrorIs(t, err, types.ErrShareExpired)

	opened, err := m.OpenShare(ctx, token, "hunter2", nil, "Guest <b>Gail</b>")
	require.NoError(t, err)
	require.Len(t, opened.Participants, 1)
	assert.Equal(t, "Guest Gail", opened.Participants[0].Name)

	opened, err = m.OpenShare(ctx, token, "hunter2", nil, "guest gail")
	require.NoError(t, err)
	assert.Len(t, opened.Participants, 1, "same guest name is one participant")

	_, err = m.DisableShare(ctx, owner, p.ID)
	require.NoError(t, err)
	_, err = m.VerifyShare(ctx, token, "hunter2")
	assert.ErrorIs(t, err, types.ErrShareExpired)
}

func TestShareExpiry(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()
	p := createProject(t, m)

	shared, err := m.EnableShare(ctx, owner, p.ID, types.ShareRequest{ExpiresIn: 1})
	require.NoError(t, err)

	_, err = m.VerifyShare(ctx, shared.Share.Token, "")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = m.OpenShare(ctx, shared.Share.Token, "", nil, "late")
	assert.ErrorIs(t, err, types.ErrShareExpired)
}

func TestParticipants(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()
	p := createProject(t, m)

	_, err := m.UpsertUser(ctx, owner, types.UpsertUserRequest{})
	require.NoError(t, err)
	_, err = m.UpsertUser(ctx, collab, types.UpsertUserRequest{Name: "Carl C."})
	require.NoError(t, err)

	shared, err := m.EnableShare(ctx, owner, p.ID, types.ShareRequest{})
	require.NoError(t, err)
	_, err = m.OpenShare(ctx, shared.Share.Token, "", &other, "")
	require.NoError(t, err)
	_, err = m.OpenShare(ctx, shared.Share.Token, "", &collab, "")
	require.NoError(t, err)
	_, err = m.OpenShare(ctx, shared.Share.Token, "", nil, "Gail")
	require.NoError(t, err)

	members, err := m.Participants(ctx, &owner, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 4)

	assert.Equal(t, Member{UserID: owner.ID, Name: owner.Name, Email: owner.Email, Role: RoleOwner}, members[0])
	assert.Equal(t, "Carl C.", members[1].Name)
	assert.Equal(t, RoleCollaborator, members[1].Role)
	assert.Equal(t, other.ID, members[2].UserID)
	assert.Equal(t, RoleGuest, members[2].Role)
	assert.NotNil(t, members[2].AccessedAt)
	assert.Equal(t, "Gail", members[3].Name)

	_, err = m.Participants(ctx, &other, p.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestUpsertUserValidation(t *testing.T) {
	m, _ := setupManager(t)

	_, err := m.UpsertUser(context.Background(), types.Identity{ID: "usr_x"}, types.UpsertUserRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	u, err := m.UpsertUser(context.Background(), types.Identity{ID: "usr_x", Email: "x@example.com"}, types.UpsertUserRequest{Name: "X"})
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", u.Email)

	got, err := m.User(context.Background(), "usr_x")
	require.NoError(t, err)
	assert.Equal(t, "X", got.Name)
}
