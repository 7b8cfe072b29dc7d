// Package checkpoint persists per-model scan state so interrupted runs
// resume where they stopped instead of re-paging whole areas.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"subscraper/pkg/logger"
	"subscraper/pkg/models"
)

// AreaState is the resume cursor for one content area.
type AreaState struct {
	Cursor    string `json:"cursor,omitempty"`
	LastID    int64  `json:"last_id,omitempty"`
	Scanned   int    `json:"scanned"`
	Completed bool   `json:"completed"`
}

// Checkpoint is the scan state of one model's run.
type Checkpoint struct {
	Username   string                     `json:"username"`
	ModelID    int64                      `json:"model_id"`
	Areas      map[models.Area]*AreaState `json:"areas"`
	Downloaded int                        `json:"downloaded"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
	Version    int                        `json:"version"`
}

// Area returns the state for an area, creating it on first use.
func (c *Checkpoint) Area(area models.Area) *AreaState {
	if c.Areas == nil {
		c.Areas = make(map[models.Area]*AreaState)
	}
	st, ok := c.Areas[area]
	if !ok {
		st = &AreaState{}
		c.Areas[area] = st
	}
	return st
}

// Manager reads and writes one model's checkpoint file.
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager locates the checkpoint file for a model under the OS data
// directory.
func NewManager(username string) (*Manager, error) {
	dataDir, err := dataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	dir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		path:   filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", username)),
		logger: logger.GetLogger(),
	}, nil
}

// NewManagerAt uses an explicit file path, used by tests.
func NewManagerAt(path string, log logger.Logger) *Manager {
	return &Manager{path: path, logger: log}
}

// Create starts a fresh checkpoint, replacing any existing one.
func (m *Manager) Create(username string, modelID int64) (*Checkpoint, error) {
	cp := &Checkpoint{
		Username:  username,
		ModelID:   modelID,
		Areas:     make(map[models.Area]*AreaState),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Version:   1,
	}
	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}
	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"username": username,
		"path":     m.path,
	})
	return cp, nil
}

// Load reads the checkpoint, returning nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"username":   cp.Username,
		"downloaded": cp.Downloaded,
		"updated_at": cp.UpdatedAt,
	})
	return &cp, nil
}

// Save writes the checkpoint atomically via temp file and rename.
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tmp := m.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cp); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Delete removes the checkpoint file, typically after a completed run.
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Exists reports whether a checkpoint file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// UpdateArea persists progress within a single area.
func (m *Manager) UpdateArea(cp *Checkpoint, area models.Area, cursor string, lastID int64, scanned int) error {
	st := cp.Area(area)
	st.Cursor = cursor
	st.LastID = lastID
	st.Scanned += scanned
	return m.Save(cp)
}

// CompleteArea marks an area fully scanned and clears its cursor.
func (m *Manager) CompleteArea(cp *Checkpoint, area models.Area) error {
	st := cp.Area(area)
	st.Cursor = ""
	st.LastID = 0
	st.Completed = true
	return m.Save(cp)
}

// dataDirectory resolves the per-OS application data directory.
func dataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, "subscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "subscraper")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "subscraper")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "subscraper")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
