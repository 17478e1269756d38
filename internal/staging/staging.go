// Package staging manages request-scoped temporary files on local scratch storage.
package staging

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// nameBytes is the amount of randomness in a staged file name (256 bits).
const nameBytes = 32

// File is a staged upload.
type File struct {
	Path string
	Name string
	Ext  string
}

// Key returns the object key for the file under prefix, e.g. "landscape/<name>.mp4".
func (f *File) Key(prefix string) string {
	return fmt.Sprintf("%s/%s.%s", prefix, f.Name, f.Ext)
}

// Manager writes uploads to a scratch directory and removes them afterwards.
type Manager struct {
	dir    string
	logger *slog.Logger
}

// NewManager creates a Manager rooted at dir, creating the directory if needed.
// An empty dir selects the OS temp directory. The directory is made absolute
// so staged paths never begin with "-" and cannot be read as tool flags.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dir: dir, logger: logger}, nil
}

// Dir returns the scratch directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Stage copies r into a new file named with fresh randomness and the given
// extension. On failure nothing is left behind.
func (m *Manager) Stage(r io.Reader, ext string) (*File, error) {
	name, err := RandomName()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(m.dir, name+"."+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		m.Cleanup(path)
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		m.Cleanup(path)
		return nil, fmt.Errorf("close staged file: %w", err)
	}
	return &File{Path: path, Name: name, Ext: ext}, nil
}

// Cleanup removes every path. Missing files are ignored and other failures
// are logged; nothing is returned because the response no longer depends on it.
func (m *Manager) Cleanup(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to remove staged file", "path", p, "error", err)
		}
	}
}

// RandomName returns a URL-safe name carrying 256 bits of randomness.
func RandomName() (string, error) {
	b := make([]byte, nameBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random name: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
