package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// maxConflictRetries bounds read-modify-write retries on badger.ErrConflict.
const maxConflictRetries = 5

// Options configures Open.
type Options struct {
	// Dir is the database directory; ignored when InMemory is set.
	Dir      string
	InMemory bool
	Logger   *logging.Logger
}

// database serializes read-modify-write transactions so concurrent updates
// of one document queue instead of failing with badger.ErrConflict.
type database struct {
	*badger.DB
	writeMu sync.Mutex
}

// Store owns the badger handle and the per-kind collections.
type Store struct {
	db       *database
	log      *logging.Logger
	inMemory bool

	Comments *CommentStore
	Reviews  *ReviewStore
	Projects *ProjectStore
	Users    *UserStore
}

// Open opens (or creates) the database.
func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	log = log.Component("storage")

	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithLogger(newBadgerLogger(log))

	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Dir, err)
	}
	db := &database{DB: bdb}
	log.Info("store opened", zap.String("dir", opts.Dir), zap.Bool("in_memory", opts.InMemory))

	s := &Store{db: db, log: log, inMemory: opts.InMemory}
	s.Comments = &CommentStore{docs: collection[types.Comment]{db: db, kind: "comment"}}
	s.Reviews = &ReviewStore{docs: collection[types.Review]{db: db, kind: "review"}}
	s.Projects = &ProjectStore{docs: collection[types.Project]{db: db, kind: "project"}}
	s.Users = &UserStore{docs: collection[types.User]{db: db, kind: "user"}}
	return s, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	s.log.Info("store closed")
	return nil
}

// RunGC reclaims value-log space every interval until ctx is done.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	if s.inMemory || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				err := s.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.log.Warn("value log gc failed", zap.Error(err))
				}
				break
			}
		}
	}
}

// collection stores one document kind under "<kind>/<id>".
type collection[T any] struct {
	db   *database
	kind string
}

func (c collection[T]) prefix() []byte { return []byte(c.kind + "/") }

func (c collection[T]) key(id string) []byte { return []byte(c.kind + "/" + id) }

func (c collection[T]) get(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(c.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.NotFound(c.kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", c.kind, id, err)
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("read %s %q: %w", c.kind, id, err)
	}
	return decode[T](c.kind, data)
}

func (c collection[T]) put(txn *badger.Txn, id string, v *T) error {
	data, err := encode(c.kind, v)
	if err != nil {
		return err
	}
	return txn.Set(c.key(id), data)
}

// scan visits every document newest first until fn returns false.
func (c collection[T]) scan(txn *badger.Txn, fn func(*T) bool) error {
	return scanKeys(txn, c.prefix(), true, func(item *badger.Item) (bool, error) {
		data, err := item.ValueCopy(nil)
		if err != nil {
			return false, err
		}
		v, err := decode[T](c.kind, data)
		if err != nil {
			return false, err
		}
		return fn(v), nil
	})
}

// Load reads one document.
func (c collection[T]) Load(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := c.db.View(func(txn *badger.Txn) error {
		v, err := c.get(txn, id)
		out = v
		return err
	})
	return out, err
}

// scanKeys iterates keys under prefix, newest (highest) first when reverse.
func scanKeys(txn *badger.Txn, prefix []byte, reverse bool, fn func(*badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = reverse
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := prefix
	if reverse {
		seek = append(append([]byte{}, prefix...), 0xFF)
	}
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		more, err := fn(it.Item())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// update runs fn in a read-write transaction. Writers are serialized; the
// conflict retry covers transactions opened outside this package.
func update(ctx context.Context, db *database, fn func(txn *badger.Txn) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// index is a secondary lookup "idx/<name>/<value>\x00<id>".
type index string

func (ix index) prefix(value string) []byte {
	return []byte("idx/" + string(ix) + "/" + value + "\x00")
}

func (ix index) key(value, id string) []byte {
	return append(ix.prefix(value), id...)
}

func (ix index) add(txn *badger.Txn, value, id string) error {
	return txn.Set(ix.key(value, id), nil)
}

func (ix index) remove(txn *badger.Txn, value, id string) error {
	return txn.Delete(ix.key(value, id))
}

// ids lists ids indexed under value, newest first.
func (ix index) ids(txn *badger.Txn, value string) ([]string, error) {
	prefix := ix.prefix(value)
	var out []string
	err := scanKeys(txn, prefix, true, func(item *badger.Item) (bool, error) {
		out = append(out, string(item.Key()[len(prefix):]))
		return true, nil
	})
	return out, err
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
