package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/dgraph-io/badger/v4"
)

const usersByEmail index = "user-email"

// UserStore is the directory used for mentions and participant display.
type UserStore struct {
	docs collection[types.User]
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Upsert creates or replaces a user, keeping the email index current.
// CreatedAt survives replacement.
func (s *UserStore) Upsert(ctx context.Context, u *types.User) error {
	return update(ctx, s.docs.db, func(txn *badger.Txn) error {
		prev, err := s.docs.get(txn, u.ID)
		switch {
		case err == nil:
			if !prev.CreatedAt.IsZero() {
				u.CreatedAt = prev.CreatedAt
			}
			if old := normalizeEmail(prev.Email); old != "" && old != normalizeEmail(u.Email) {
				if err := usersByEmail.remove(txn, old, u.ID); err != nil {
					return err
				}
			}
		case !isNotFound(err):
			return err
		}

		if err := s.docs.put(txn, u.ID, u); err != nil {
			return err
		}
		if email := normalizeEmail(u.Email); email != "" {
			return usersByEmail.add(txn, email, u.ID)
		}
		return nil
	})
}

func (s *UserStore) Get(ctx context.Context, id string) (*types.User, error) {
	return s.docs.Load(ctx, id)
}

// GetMany loads the known users among ids, skipping unknown ones.
func (s *UserStore) GetMany(ctx context.Context, ids []string) ([]*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*types.User, 0, len(ids))
	err := s.docs.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			u, err := s.docs.get(txn, id)
			if isNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return out, nil
}

// FindByEmail matches case-insensitively.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	email = normalizeEmail(email)
	var out *types.User
	err := s.docs.db.View(func(txn *badger.Txn) error {
		ids, err := usersByEmail.ids(txn, email)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return types.NotFound("user", email)
		}
		out, err = s.docs.get(txn, ids[0])
		return err
	})
	return out, err
}
