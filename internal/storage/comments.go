package storage

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/dgraph-io/badger/v4"
)

const commentsByURL index = "comment-url"

// CommentStore persists page comments, indexed by URL.
type CommentStore struct {
	docs collection[types.Comment]
}

// Create stores a new comment.
func (s *CommentStore) Create(ctx context.Context, c *types.Comment) error {
	return update(ctx, s.docs.db, func(txn *badger.Txn) error {
		if err := s.docs.put(txn, c.ID, c); err != nil {
			return err
		}
		return commentsByURL.add(txn, c.URL, c.ID)
	})
}

// Get loads one comment.
func (s *CommentStore) Get(ctx context.Context, id string) (*types.Comment, error) {
	return s.docs.Load(ctx, id)
}

// List returns matching comments, newest first. A URL filter walks the URL
// index instead of the whole collection.
func (s *CommentStore) List(ctx context.Context, f types.CommentFilter) ([]*types.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []*types.Comment{}
	err := s.docs.db.View(func(txn *badger.Txn) error {
		if f.URL == "" {
			return s.docs.scan(txn, func(c *types.Comment) bool {
				if f.Matches(c) {
					out = append(out, c)
				}
				return true
			})
		}

		ids, err := commentsByURL.ids(txn, f.URL)
		if err != nil {
			return err
		}
		for _, id := range ids {
			c, err := s.docs.get(txn, id)
			if err != nil {
				return err
			}
			if f.Matches(c) {
				out = append(out, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}

// Update applies fn to the stored comment and writes the result. Concurrent
// updates serialize; the last commit wins.
func (s *CommentStore) Update(ctx context.Context, id string, fn func(*types.Comment) error) (*types.Comment, error) {
	var out *types.Comment
	err := update(ctx, s.docs.db, func(txn *badger.Txn) error {
		c, err := s.docs.get(txn, id)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		out = c
		return s.docs.put(txn, id, c)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes one comment and its replies.
func (s *CommentStore) Delete(ctx context.Context, id string) error {
	return update(ctx, s.docs.db, func(txn *badger.Txn) error {
		c, err := s.docs.get(txn, id)
		if err != nil {
			return err
		}
		if err := commentsByURL.remove(txn, c.URL, id); err != nil {
			return err
		}
		return txn.Delete(s.docs.key(id))
	})
}

// DeleteByURL removes every comment on url and returns their ids.
func (s *CommentStore) DeleteByURL(ctx context.Context, url string) ([]string, error) {
	var deleted []string
	err := update(ctx, s.docs.db, func(txn *badger.Txn) error {
		ids, err := commentsByURL.ids(txn, url)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := txn.Delete(s.docs.key(id)); err != nil {
				return err
			}
			if err := commentsByURL.remove(txn, url, id); err != nil {
				return err
			}
		}
		deleted = ids
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete comments for %q: %w", url, err)
	}
	return deleted, nil
}
