package storage

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/dgraph-io/badger/v4"
)

const reviewsByProject index = "review-project"

// ReviewStore persists canvas annotations, indexed by project.
type ReviewStore struct {
	docs collection[types.Review]
}

func (s *ReviewStore) Create(ctx context.Context, r *types.Review) error {
	return update(ctx, s.docs.db, func(txn *badger.Txn) error {
		if err := s.docs.put(txn, r.ID, r); err != nil {
			return err
		}
		return reviewsByProject.add(txn, r.ProjectID, r.ID)
	})
}

func (s *ReviewStore) Get(ctx context.Context, id string) (*types.Review, error) {
	return s.docs.Load(ctx, id)
}

// ListByProject returns a project's reviews, newest first.
func (s *ReviewStore) ListByProject(ctx context.Context, projectID string) ([]*types.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []*types.Review{}
	err := s.docs.db.View(func(txn *badger.Txn) error {
		ids, err := reviewsByProject.ids(txn, projectID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			r, err := s.docs.get(txn, id)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews for project %q: %w", projectID, err)
	}
	return out, nil
}

// Update applies fn to the stored review; last commit wins.
func (s *ReviewStore) Update(ctx context.Context, id string, fn func(*types.Review) error) (*types.Review, error) {
	var out *types.Review
	err := update(ctx, s.docs.db, func(txn *badger.Txn) error {
		r, err := s.docs.get(txn, id)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		out = r
		return s.docs.put(txn, id, r)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReviewStore) Delete(ctx context.Context, id string) error {
	return update(ctx, s.docs.db, func(txn *badger.Txn) error {
		r, err := s.docs.get(txn, id)
		if err != nil {
			return err
		}
		if err := reviewsByProject.remove(txn, r.ProjectID, id); err != nil {
			return err
		}
		return txn.Delete(s.docs.key(id))
	})
}

// DeleteByProject removes every review of a project and returns their ids.
func (s *ReviewStore) DeleteByProject(ctx context.Context, projectID string) ([]string, error) {
	var deleted []string
	err := update(ctx, s.docs.db, func(txn *badger.Txn) error {
		ids, err := reviewsByProject.ids(txn, projectID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := txn.Delete(s.docs.key(id)); err != nil {
				return err
			}
			if err := reviewsByProject.remove(txn, projectID, id); err != nil {
				return err
			}
		}
		deleted = ids
		return nil
	})
	return deleted, err
}
