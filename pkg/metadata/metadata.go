package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"subscraper/pkg/db"
)

// Snapshot is the portable JSON view of one model's scan cache. It
// carries everything needed to inspect or re-import the cache without
// opening the SQLite file.
type Snapshot struct {
	ModelID    int64     `json:"model_id"`
	Username   string    `json:"username"`
	ExportedAt time.Time `json:"exported_at"`
	Media      []Entry   `json:"media"`
}

// Entry is one media item in a snapshot.
type Entry struct {
	MediaID   int64  `json:"media_id"`
	PostID    int64  `json:"post_id"`
	APIType   string `json:"api_type"`
	MediaType string `json:"media_type"`
	Link      string `json:"link,omitempty"`

	Price float64 `json:"price"`
	Text  string  `json:"text,omitempty"`

	Duration float64 `json:"duration,omitempty"`
	Preview  bool    `json:"preview"`
	Unlocked bool    `json:"unlocked"`

	Downloaded bool      `json:"downloaded"`
	Directory  string    `json:"directory,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Hash       string    `json:"hash,omitempty"`
	PostedAt   time.Time `json:"posted_at"`
}

// FromRows builds a snapshot from cache rows.
func FromRows(modelID int64, username string, rows []db.MediaRow) *Snapshot {
	snap := &Snapshot{
		ModelID:    modelID,
		Username:   username,
		ExportedAt: time.Now(),
		Media:      make([]Entry, 0, len(rows)),
	}
	for _, row := range rows {
		snap.Media = append(snap.Media, Entry{
			MediaID:    row.MediaID,
			PostID:     row.PostID,
			APIType:    row.APIType,
			MediaType:  row.MediaType,
			Link:       row.Link,
			Price:      row.Price,
			Text:       row.Text,
			Duration:   row.Duration,
			Preview:    row.Preview,
			Unlocked:   row.Unlocked,
			Downloaded: row.Downloaded,
			Directory:  row.Directory,
			Filename:   row.Filename,
			Size:       row.Size,
			Hash:       row.Hash,
			PostedAt:   row.PostedAt,
		})
	}
	return snap
}

// Export reads a model's cache and writes its snapshot to path. The
// model id comes from the cache rows themselves.
func Export(store *db.Store, username, path string) error {
	rows, err := store.MediaRows()
	if err != nil {
		return err
	}
	var modelID int64
	if len(rows) > 0 {
		modelID = rows[0].ModelID
	}
	return FromRows(modelID, username, rows).Save(path)
}

// Save writes the snapshot as indented JSON. The write is atomic so a
// crash never leaves a truncated export behind.
func (s *Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Downloaded counts entries already on disk.
func (s *Snapshot) Downloaded() int {
	n := 0
	for _, e := range s.Media {
		if e.Downloaded {
			n++
		}
	}
	return n
}
