package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// Sweep deletes stored screenshots last modified before now-retention and
// returns how many were removed. Files not created by this store are left alone.
func (s *LocalStore) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention)

	var removed atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != s.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(d.Name(), namePrefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.log.Warn("remove expired screenshot", zap.String("file", p), zap.Error(err))
			return nil
		}
		removed.Add(1)
		return nil
	})

	n := int(removed.Load())
	if n > 0 {
		s.log.Info("expired screenshots removed", zap.Int("count", n), zap.Duration("retention", retention))
	}
	return n, err
}

// RunSweeper sweeps every interval until ctx is done. A zero retention disables it.
func (s *LocalStore) RunSweeper(ctx context.Context, interval, retention time.Duration) {
	if retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, retention); err != nil && ctx.Err() == nil {
				s.log.Warn("screenshot sweep", zap.Error(err))
			}
		}
	}
}
