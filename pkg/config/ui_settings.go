package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UISettings holds presentation preferences persisted separately from
// config.json so scraper settings and cosmetics never clobber each other.
type UISettings struct {
	Theme string `json:"theme"`
}

// Known theme names accepted by the terminal UI
var validThemes = map[string]bool{
	"dark":  true,
	"light": true,
}

// DefaultUISettings returns the settings used when ui_settings.json is absent
func DefaultUISettings() *UISettings {
	return &UISettings{Theme: "dark"}
}

// UISettingsPath returns the ui_settings.json location
func UISettingsPath() string {
	return filepath.Join(Dir(), "ui_settings.json")
}

// LoadUISettings reads ui_settings.json, falling back to defaults when the
// file is missing or unreadable. A corrupt file is replaced by defaults
// rather than aborting startup.
func LoadUISettings(path string) *UISettings {
	if path == "" {
		path = UISettingsPath()
	}

	settings := DefaultUISettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return DefaultUISettings()
	}

	if !validThemes[settings.Theme] {
		settings.Theme = "dark"
	}

	return settings
}

// Save writes the settings atomically
func (s *UISettings) Save(path string) error {
	if path == "" {
		path = UISettingsPath()
	}

	if !validThemes[s.Theme] {
		return fmt.Errorf("unknown theme: %s", s.Theme)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ui settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write ui settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace ui settings: %w", err)
	}

	return nil
}
