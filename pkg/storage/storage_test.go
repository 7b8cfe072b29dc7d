package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subscraper/pkg/config"
	"subscraper/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.FileOptions.SaveLocation = t.TempDir()
	return cfg
}

func sampleValues() PlaceholderValues {
	return PlaceholderValues{
		ModelUsername: "alice",
		ResponseType:  "Timeline",
		MediaType:     "videos",
		Filename:      "clip_01",
		Ext:           "mp4",
		Text:          "a day at the beach",
		MediaID:       42,
		PostID:        7,
		Date:          time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestRendererDefaults(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)
	v := sampleValues()

	if got := r.Dir(v); got != filepath.Join("alice", "Timeline", "videos") {
		t.Errorf("Dir() = %q", got)
	}
	if got := r.File(v); got != "clip_01.mp4" {
		t.Errorf("File() = %q", got)
	}
}

func TestRendererCustomTemplates(t *testing.T) {
	cfg := testConfig(t)
	cfg.FileOptions.DirFormat = "{model_username}/{date}"
	cfg.FileOptions.FileFormat = "{post_id}_{media_id}_{text}.{ext}"
	cfg.FileOptions.TextLength = 5
	cfg.FileOptions.SpaceReplacer = "-"
	r := NewRenderer(cfg)
	v := sampleValues()

	if got := r.Dir(v); got != filepath.Join("alice", "2024-06-15") {
		t.Errorf("Dir() = %q", got)
	}
	if got := r.File(v); got != "7_42_a-day.mp4" {
		t.Errorf("File() = %q", got)
	}
}

func TestRendererCustomValues(t *testing.T) {
	cfg := testConfig(t)
	cfg.FileOptions.DirFormat = "{site}/{model_username}"
	cfg.AdvancedOptions.CustomValues = map[string]string{"site": "primary"}
	r := NewRenderer(cfg)

	if got := r.Dir(sampleValues()); got != filepath.Join("primary", "alice") {
		t.Errorf("Dir() = %q", got)
	}
}

func TestRendererSanitizes(t *testing.T) {
	cfg := testConfig(t)
	cfg.FileOptions.FileFormat = "{text}.{ext}"
	r := NewRenderer(cfg)
	v := sampleValues()
	v.Text = `what? a "quote": yes`

	got := r.File(v)
	if strings.ContainsAny(got, `?"*:<>|`) {
		t.Errorf("File() = %q still contains unsafe characters", got)
	}
}

func TestManagerSaveAndExists(t *testing.T) {
	cfg := testConfig(t)
	m, err := NewManager(cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	dir, file := m.PathFor(sampleValues())
	if m.Exists(dir, file) {
		t.Fatal("Exists() before save should be false")
	}

	n, err := m.Save(strings.NewReader("payload"), dir, file)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n != int64(len("payload")) {
		t.Errorf("Save() wrote %d bytes", n)
	}
	if !m.Exists(dir, file) {
		t.Error("Exists() after save should be true")
	}

	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil || string(data) != "payload" {
		t.Errorf("file content = %q, err = %v", data, err)
	}

	// No leftover temp file
	if _, err := os.Stat(filepath.Join(dir, file+".part")); !os.IsNotExist(err) {
		t.Error("temp file not cleaned up")
	}
}

func TestManagerRescanDetectsExisting(t *testing.T) {
	cfg := testConfig(t)
	m, err := NewManager(cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}

	dir, file := m.PathFor(sampleValues())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !m.Exists(dir, file) {
		t.Error("Exists() should find files written outside the manager")
	}
}
