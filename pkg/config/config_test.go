package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MainProfile != "main_profile" {
		t.Errorf("MainProfile = %q, want main_profile", cfg.MainProfile)
	}
	if cfg.PerformanceOptions.ThreadCount <= 0 {
		t.Error("default thread_count must be positive")
	}
	if cfg.PerformanceOptions.DownloadSems <= 0 {
		t.Error("default download_sems must be positive")
	}
	if cfg.AdvancedOptions.DynamicMode != "generic" {
		t.Errorf("default dynamic mode = %q, want generic", cfg.AdvancedOptions.DynamicMode)
	}
	if cfg.AdvancedOptions.CacheMode != "sqlite" {
		t.Errorf("default cache mode = %q, want sqlite", cfg.AdvancedOptions.CacheMode)
	}
	if !cfg.DownloadOptions.AutoResume {
		t.Error("auto_resume should default to true")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "profile without suffix",
			mutate:  func(c *Config) { c.MainProfile = "main" },
			wantErr: true,
		},
		{
			name:    "empty save location",
			mutate:  func(c *Config) { c.FileOptions.SaveLocation = "" },
			wantErr: true,
		},
		{
			name:    "zero thread count",
			mutate:  func(c *Config) { c.PerformanceOptions.ThreadCount = 0 },
			wantErr: true,
		},
		{
			name:    "excessive download sems",
			mutate:  func(c *Config) { c.PerformanceOptions.DownloadSems = 64 },
			wantErr: true,
		},
		{
			name:    "negative download limit",
			mutate:  func(c *Config) { c.PerformanceOptions.DownloadLimit = -1 },
			wantErr: true,
		},
		{
			name:    "unknown key mode",
			mutate:  func(c *Config) { c.CDMOptions.KeyMode = "magic" },
			wantErr: true,
		},
		{
			name: "keydb mode requires api",
			mutate: func(c *Config) {
				c.CDMOptions.KeyMode = "keydb"
				c.CDMOptions.KeyDBAPI = ""
			},
			wantErr: true,
		},
		{
			name: "keydb mode with api",
			mutate: func(c *Config) {
				c.CDMOptions.KeyMode = "keydb"
				c.CDMOptions.KeyDBAPI = "https://keydb.example.com"
			},
			wantErr: false,
		},
		{
			name:    "unknown dynamic mode",
			mutate:  func(c *Config) { c.AdvancedOptions.DynamicMode = "turbo" },
			wantErr: true,
		},
		{
			name:    "unknown cache mode",
			mutate:  func(c *Config) { c.AdvancedOptions.CacheMode = "redis" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	cfg.FileOptions.SaveLocation = "/tmp/media"
	cfg.PerformanceOptions.ThreadCount = 4
	cfg.AdvancedOptions.CustomValues = map[string]string{"studio": "test"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loaded.FileOptions.SaveLocation != "/tmp/media" {
		t.Errorf("save_location = %q after round trip", loaded.FileOptions.SaveLocation)
	}
	if loaded.PerformanceOptions.ThreadCount != 4 {
		t.Errorf("thread_count = %d after round trip", loaded.PerformanceOptions.ThreadCount)
	}
	if loaded.AdvancedOptions.CustomValues["studio"] != "test" {
		t.Errorf("custom_values lost in round trip: %v", loaded.AdvancedOptions.CustomValues)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Errorf("missing config file should not be an error, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SUBSCRAPER_SAVE_LOCATION", "/srv/media")
	t.Setenv("SUBSCRAPER_THREAD_COUNT", "8")
	t.Setenv("SUBSCRAPER_AUTO_RESUME", "false")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.FileOptions.SaveLocation != "/srv/media" {
		t.Errorf("save_location = %q, want /srv/media", cfg.FileOptions.SaveLocation)
	}
	if cfg.PerformanceOptions.ThreadCount != 8 {
		t.Errorf("thread_count = %d, want 8", cfg.PerformanceOptions.ThreadCount)
	}
	if cfg.DownloadOptions.AutoResume {
		t.Error("auto_resume should be disabled by env override")
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"threads":      3,
		"max-count":    50,
		"dynamic-mode": "manual",
	})

	if cfg.PerformanceOptions.ThreadCount != 3 {
		t.Errorf("thread_count = %d, want 3", cfg.PerformanceOptions.ThreadCount)
	}
	if cfg.DownloadOptions.MaxPostCount != 50 {
		t.Errorf("max_post_count = %d, want 50", cfg.DownloadOptions.MaxPostCount)
	}
	if cfg.AdvancedOptions.DynamicMode != "manual" {
		t.Errorf("dynamic mode = %q, want manual", cfg.AdvancedOptions.DynamicMode)
	}
}

func TestUISettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ui_settings.json")

	// Missing file falls back to defaults.
	s := LoadUISettings(path)
	if s.Theme != "dark" {
		t.Errorf("default theme = %q, want dark", s.Theme)
	}

	s.Theme = "light"
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := LoadUISettings(path)
	if loaded.Theme != "light" {
		t.Errorf("theme = %q after round trip, want light", loaded.Theme)
	}

	// Corrupt file falls back to defaults.
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	loaded = LoadUISettings(path)
	if loaded.Theme != "dark" {
		t.Errorf("corrupt settings should reset to dark, got %q", loaded.Theme)
	}

	// Unknown theme is rejected on save.
	bad := &UISettings{Theme: "solarized"}
	if err := bad.Save(path); err == nil {
		t.Error("saving unknown theme should fail")
	}
}
