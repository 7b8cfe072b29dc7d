package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscraper/pkg/db"
	"subscraper/pkg/logger"
)

func seededStore(t *testing.T) *db.Store {
	t.Helper()

	store, err := db.OpenMemory(logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.UpsertModel(100, "alice"))
	require.NoError(t, store.UpsertPost("post", db.PostRecord{
		PostID:   1,
		ModelID:  100,
		Text:     "caption",
		Price:    5,
		PostedAt: time.Now(),
	}))
	require.NoError(t, store.UpsertMedia(db.MediaRecord{
		MediaID:   11,
		PostID:    1,
		ModelID:   100,
		APIType:   "post",
		MediaType: "images",
		Link:      "https://cdn/media_11.jpg",
		Unlocked:  true,
		PostedAt:  time.Now(),
	}))
	require.NoError(t, store.UpsertMedia(db.MediaRecord{
		MediaID:   12,
		PostID:    1,
		ModelID:   100,
		APIType:   "post",
		MediaType: "videos",
		Duration:  30,
		PostedAt:  time.Now(),
	}))
	require.NoError(t, store.MarkDownloaded(11, 1, "/tmp/alice", "media_11.jpg", 1024, "abc123"))
	return store
}

func TestExportAndLoad(t *testing.T) {
	store := seededStore(t)
	path := filepath.Join(t.TempDir(), "exports", "alice.json")

	require.NoError(t, Export(store, "alice", path))

	snap, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(100), snap.ModelID)
	assert.Equal(t, "alice", snap.Username)
	require.Len(t, snap.Media, 2)
	assert.Equal(t, 1, snap.Downloaded())

	var downloaded *Entry
	for i := range snap.Media {
		if snap.Media[i].MediaID == 11 {
			downloaded = &snap.Media[i]
		}
	}
	require.NotNil(t, downloaded, "media 11 missing from snapshot")
	assert.True(t, downloaded.Downloaded)
	assert.Equal(t, "media_11.jpg", downloaded.Filename)
	assert.Equal(t, int64(1024), downloaded.Size)

	// Post price and text ride along on each media entry
	assert.Equal(t, float64(5), downloaded.Price)
	assert.Equal(t, "caption", downloaded.Text)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")

	snap := &Snapshot{ModelID: 1, Username: "alice", ExportedAt: time.Now()}
	require.NoError(t, snap.Save(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file left behind after Save()")
}
