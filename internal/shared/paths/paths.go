// Package paths provides the on-disk and URL layout shared by storage, blob
// persistence and the static file routes.
package paths

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Subdirectories below the data and uploads roots
const (
	Database    = "db"
	Screenshots = "screenshots"
)

// URL prefixes
const (
	UploadsRoute     = "/uploads"
	ScreenshotsRoute = "/uploads/screenshots"
	OverlayScript    = "/overlay-script.js"
	ProxyRoute       = "/proxy"
	SocketRoute      = "/ws"
)

// Layout resolves directories for one deployment.
type Layout struct {
	DataDir    string
	UploadsDir string
}

// DatabaseDir returns the badger directory
func (l Layout) DatabaseDir() string {
	return filepath.Join(l.DataDir, Database)
}

// ScreenshotDir returns the directory holding captured and uploaded screenshots
func (l Layout) ScreenshotDir() string {
	return filepath.Join(l.UploadsDir, Screenshots)
}

// StandardDirectories returns all directories that should exist at startup
func (l Layout) StandardDirectories() []string {
	return []string{l.DatabaseDir(), l.ScreenshotDir()}
}

// ScreenshotURL returns the public path for a stored screenshot file name
func ScreenshotURL(name string) string {
	return path.Join(ScreenshotsRoute, name)
}

// ValidateFileName rejects names that could escape their directory
func ValidateFileName(name string) error {
	if name == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("file name cannot contain path separators")
	}
	if name == "." || name == ".." || filepath.Clean(name) != name {
		return fmt.Errorf("file name contains invalid path components")
	}
	return nil
}
