// Package blob persists screenshot images on the local filesystem and
// expires them after a retention window.
package blob

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/paths"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var (
	ErrNotImage = errors.New("only image files are allowed")
	ErrTooLarge = fmt.Errorf("file exceeds %d bytes", utils.MaxUploadSize)
	ErrEmpty    = errors.New("file is empty")
)

// namePrefix starts every stored screenshot file name.
const namePrefix = "screenshot-"

// Object describes a stored file.
type Object struct {
	Name string `json:"filename"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
	Size int    `json:"size"`
}

// LocalStore writes screenshots into one directory.
type LocalStore struct {
	dir   string
	log   *logging.Logger
	now   func() time.Time
	saved atomic.Int64
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string, log *logging.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	return &LocalStore{dir: dir, log: log.Component("blob"), now: time.Now}, nil
}

// Dir returns the directory served at paths.ScreenshotsRoute.
func (s *LocalStore) Dir() string { return s.dir }

// SaveImage stores data under a generated name. The content must sniff as
// an image; the extension follows the detected type, never the caller.
func (s *LocalStore) SaveImage(ctx context.Context, data []byte) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > utils.MaxUploadSize {
		return nil, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrNotImage
	}

	name := s.newName(mt.Extension())
	target, err := s.safePath(name)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(target, data); err != nil {
		return nil, fmt.Errorf("store screenshot: %w", err)
	}
	s.saved.Add(1)

	s.log.Debug("screenshot stored", zap.String("file", name), zap.Int("bytes", len(data)))
	return &Object{Name: name, URL: paths.ScreenshotURL(name), MIME: mt.String(), Size: len(data)}, nil
}

// Open returns a stored file for reading.
func (s *LocalStore) Open(name string) (*os.File, error) {
	p, err := s.safePath(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Saved reports how many files this process has written.
func (s *LocalStore) Saved() int64 { return s.saved.Load() }

func (s *LocalStore) newName(ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s%d-%d%s", namePrefix, s.now().UnixMilli(), rand.IntN(1_000_000_000), ext)
}

func (s *LocalStore) safePath(name string) (string, error) {
	if err := paths.ValidateFileName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
