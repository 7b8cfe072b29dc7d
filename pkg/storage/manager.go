// Package storage lays out downloaded media on disk: placeholder-driven
// paths, duplicate detection, atomic writes, and a free-space guard.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"subscraper/pkg/config"
	errs "subscraper/pkg/errors"
	"subscraper/pkg/logger"
)

// Manager writes media files under the configured save location.
type Manager struct {
	root     string
	renderer *Renderer
	freeMin  int64
	logger   logger.Logger

	mu    sync.RWMutex
	known map[string]bool
}

// NewManager creates the save location if needed.
func NewManager(cfg *config.Config, log logger.Logger) (*Manager, error) {
	root := cfg.FileOptions.SaveLocation
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to create save location", err)
	}
	return &Manager{
		root:     root,
		renderer: NewRenderer(cfg),
		freeMin:  cfg.DownloadOptions.SystemFreeMin,
		logger:   log,
		known:    make(map[string]bool),
	}, nil
}

// Root returns the save location.
func (m *Manager) Root() string {
	return m.root
}

// PathFor renders the full on-disk path for a media item.
func (m *Manager) PathFor(v PlaceholderValues) (dir string, file string) {
	return filepath.Join(m.root, m.renderer.Dir(v)), m.renderer.File(v)
}

// Exists reports whether the target file is already on disk.
func (m *Manager) Exists(dir, file string) bool {
	full := filepath.Join(dir, file)

	m.mu.RLock()
	cached := m.known[full]
	m.mu.RUnlock()
	if cached {
		return true
	}

	if _, err := os.Stat(full); err == nil {
		m.mu.Lock()
		m.known[full] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save streams r into dir/file via a temp file and atomic rename.
// Fails up front when free disk space is below the configured floor.
func (m *Manager) Save(r io.Reader, dir, file string) (int64, error) {
	if err := m.checkFreeSpace(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errs.Wrap(errs.ErrorTypeStorage, "failed to create media directory", err)
	}

	full := filepath.Join(dir, file)
	tmp := full + ".part"

	out, err := os.Create(tmp)
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeStorage, "failed to create temp file", err)
	}

	n, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return n, errs.Wrap(errs.ErrorTypeStorage, "failed to write media data", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return n, errs.Wrap(errs.ErrorTypeStorage, "failed to close temp file", closeErr)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return n, errs.Wrap(errs.ErrorTypeStorage, "failed to finalize media file", err)
	}

	m.mu.Lock()
	m.known[full] = true
	m.mu.Unlock()
	return n, nil
}

// Count returns how many files this manager has seen or written.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.known)
}

func (m *Manager) checkFreeSpace() error {
	if m.freeMin <= 0 {
		return nil
	}
	free, err := freeBytes(m.root)
	if err != nil {
		// Platforms without the statfs call skip the guard
		return nil
	}
	if free < m.freeMin {
		return errs.New(errs.ErrorTypeStorage, "free disk space below configured minimum")
	}
	return nil
}
