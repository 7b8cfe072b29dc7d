package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subscraper/pkg/config"
	"subscraper/pkg/db"
	"subscraper/pkg/logger"
)

// PurgeReport summarizes what a purge removed.
type PurgeReport struct {
	FilesRemoved    int
	BytesFreed      int64
	DatabaseRemoved bool
}

// Purge deletes a model's downloaded files as recorded in its cache
// database, and the database itself when removeDB is set. Only paths
// under the configured save location are touched; anything the cache
// points at outside that root is skipped.
func Purge(cfg *config.Config, username string, removeDB bool, log logger.Logger) (*PurgeReport, error) {
	report := &PurgeReport{}

	root, err := filepath.Abs(cfg.FileOptions.SaveLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve save location: %w", err)
	}

	dbPath := db.ModelDBPath(cfg.FileOptions.SaveLocation, username)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return report, nil
	}

	store, err := db.Open(dbPath, log)
	if err != nil {
		return nil, err
	}

	files, err := store.DownloadedFiles()
	closeErr := store.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	for _, entry := range files {
		path := filepath.Join(entry[0], entry[1])
		if !underRoot(root, path) {
			log.WarnWithFields("Skipping file outside save location", map[string]interface{}{
				"path": path,
			})
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.WarnWithFields("Failed to remove file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		report.FilesRemoved++
		report.BytesFreed += info.Size()
	}

	if removeDB {
		if err := os.Remove(dbPath); err != nil {
			return report, fmt.Errorf("failed to remove cache database: %w", err)
		}
		report.DatabaseRemoved = true
	}
	return report, nil
}

func underRoot(root, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
