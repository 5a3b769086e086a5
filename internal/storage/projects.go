package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/dgraph-io/badger/v4"
)

const projectsByShareToken index = "project-share"

// ProjectStore persists projects, indexed by share token.
type ProjectStore struct {
	docs collection[types.Project]
}

func (s *ProjectStore) Create(ctx context.Context, p *types.Project) error {
	return update(ctx, s.docs.db, func(txn *badger.Txn) error {
		if err := s.docs.put(txn, p.ID, p); err != nil {
			return err
		}
		if p.Share.Token != "" {
			return projectsByShareToken.add(txn, p.Share.Token, p.ID)
		}
		return nil
	})
}

func (s *ProjectStore) Get(ctx context.Context, id string) (*types.Project, error) {
	return s.docs.Load(ctx, id)
}

// Update applies fn and keeps the share-token index in step with the result.
func (s *ProjectStore) Update(ctx context.Context, id string, fn func(*types.Project) error) (*types.Project, error) {
	var out *types.Project
	err := update(ctx, s.docs.db, func(txn *badger.Txn) error {
		p, err := s.docs.get(txn, id)
		if err != nil {
			return err
		}
		oldToken := p.Share.Token
		if err := fn(p); err != nil {
			return err
		}
		if oldToken != p.Share.Token {
			if oldToken != "" {
				if err := projectsByShareToken.remove(txn, oldToken, id); err != nil {
					return err
				}
			}
			if p.Share.Token != "" {
				if err := projectsByShareToken.add(txn, p.Share.Token, id); err != nil {
					return err
				}
			}
		}
		out = p
		return s.docs.put(txn, id, p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	return update(ctx, s.docs.db, func(txn *badger.Txn) error {
		p, err := s.docs.get(txn, id)
		if err != nil {
			return err
		}
		if p.Share.Token != "" {
			if err := projectsByShareToken.remove(txn, p.Share.Token, id); err != nil {
				return err
			}
		}
		return txn.Delete(s.docs.key(id))
	})
}

// ListForUser returns projects the user owns or collaborates on, newest first.
func (s *ProjectStore) ListForUser(ctx context.Context, userID string) ([]*types.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []*types.Project{}
	err := s.docs.db.View(func(txn *badger.Txn) error {
		return s.docs.scan(txn, func(p *types.Project) bool {
			if p.IsMember(userID) {
				out = append(out, p)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// FindByShareToken resolves a share link to its project.
func (s *ProjectStore) FindByShareToken(ctx context.Context, token string) (*types.Project, error) {
	if token == "" {
		return nil, types.NotFound("share", token)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *types.Project
	err := s.docs.db.View(func(txn *badger.Txn) error {
		ids, err := projectsByShareToken.ids(txn, token)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return types.NotFound("share", token)
		}
		out, err = s.docs.get(txn, ids[0])
		return err
	})
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.NotFound("share", token)
	}
	return out, err
}
