package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"subscraper/pkg/logger"
	"subscraper/pkg/models"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alice.checkpoint.json")
	return NewManagerAt(path, logger.NewNopLogger())
}

func TestCreateLoadRoundTrip(t *testing.T) {
	m := testManager(t)

	cp, err := m.Create("alice", 42)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !m.Exists() {
		t.Fatal("checkpoint file missing after create")
	}

	if err := m.UpdateArea(cp, models.AreaTimeline, "171452.000", 0, 50); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateArea(cp, models.AreaMessages, "", 9001, 20); err != nil {
		t.Fatal(err)
	}
	if err := m.CompleteArea(cp, models.AreaMessages); err != nil {
		t.Fatal(err)
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Username != "alice" || loaded.ModelID != 42 {
		t.Errorf("loaded identity = %s/%d", loaded.Username, loaded.ModelID)
	}

	tl := loaded.Area(models.AreaTimeline)
	if tl.Cursor != "171452.000" || tl.Scanned != 50 || tl.Completed {
		t.Errorf("timeline state = %+v", tl)
	}
	msg := loaded.Area(models.AreaMessages)
	if !msg.Completed || msg.Cursor != "" || msg.LastID != 0 {
		t.Errorf("messages state = %+v", msg)
	}
}

func TestLoadMissingReturnsNil(t *testing.T) {
	m := testManager(t)
	cp, err := m.Load()
	if err != nil || cp != nil {
		t.Errorf("Load() on missing file = %v, %v", cp, err)
	}
}

func TestDelete(t *testing.T) {
	m := testManager(t)
	if _, err := m.Create("alice", 1); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if m.Exists() {
		t.Error("checkpoint still exists after delete")
	}
	// Deleting again is not an error
	if err := m.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	m := testManager(t)
	cp, err := m.Create("alice", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Save(cp); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(m.path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
