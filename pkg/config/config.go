package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration options for the scraper.
//
// The on-disk representation is config.json; key names follow the sections
// users already know from earlier releases, including the hyphenated keys
// inside cdm_options and advanced_options.
type Config struct {
	// MainProfile selects the active profile directory
	MainProfile string `json:"main_profile"`

	// Metadata is the directory format for metadata databases
	Metadata string `json:"metadata"`

	// DiscordWebhook receives run notifications when set
	DiscordWebhook string `json:"discord"`

	FileOptions        FileOptions        `json:"file_options"`
	DownloadOptions    DownloadOptions    `json:"download_options"`
	PerformanceOptions PerformanceOptions `json:"performance_options"`
	CDMOptions         CDMOptions         `json:"cdm_options"`
	AdvancedOptions    AdvancedOptions    `json:"advanced_options"`
}

// FileOptions controls where and how downloaded files are placed
type FileOptions struct {
	// SaveLocation is the root directory for all downloads
	SaveLocation string `json:"save_location"`
	// DirFormat is the placeholder template for per-media directories
	DirFormat string `json:"dir_format"`
	// FileFormat is the placeholder template for file names
	FileFormat string `json:"file_format"`
	// TextLength truncates the {text} placeholder (0 means no limit)
	TextLength int `json:"textlength"`
	// SpaceReplacer substitutes spaces in generated paths
	SpaceReplacer string `json:"space_replacer"`
	// DateFormat is the Go reference layout used for the {date} placeholder
	DateFormat string `json:"date"`
}

// DownloadOptions controls download behavior
type DownloadOptions struct {
	// SystemFreeMin aborts downloads when free disk space drops below
	// this many bytes (0 disables the check)
	SystemFreeMin int64 `json:"system_free_min"`
	// AutoResume continues interrupted scans from saved cursors
	AutoResume bool `json:"auto_resume"`
	// MaxPostCount stops paginating an area after this many posts
	// (0 means no limit)
	MaxPostCount int `json:"max_post_count"`
}

// PerformanceOptions controls concurrency and bandwidth
type PerformanceOptions struct {
	// ThreadCount is the number of concurrent area scans
	ThreadCount int `json:"thread_count"`
	// DownloadSems is the number of concurrent media downloads
	DownloadSems int `json:"download_sems"`
	// DownloadLimit caps download bandwidth in bytes per second
	// (0 means unlimited)
	DownloadLimit int64 `json:"download_limit"`
}

// CDMOptions configures the content decryption module used for
// DRM-protected media
type CDMOptions struct {
	KeyMode    string `json:"key-mode-default"`
	KeyDBAPI   string `json:"keydb_api"`
	ClientID   string `json:"client-id"`
	PrivateKey string `json:"private-key"`
}

// AdvancedOptions holds settings most users never touch
type AdvancedOptions struct {
	// DynamicMode selects the signing rules source: generic or manual
	DynamicMode string `json:"dynamic-mode-default"`
	// Backend selects the HTTP transport: auto, http1 or http2
	Backend string `json:"backend"`
	// CacheMode selects the scan cache backend: sqlite, json or disabled
	CacheMode string `json:"cache-mode"`
	// CustomValues are free-form extras exposed to path templates
	CustomValues map[string]string `json:"custom_values"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		MainProfile: "main_profile",
		Metadata:    "{configpath}/{profile}/.data/{model_username}_{model_id}",
		FileOptions: FileOptions{
			SaveLocation:  filepath.Join(home, "Data", "subscraper"),
			DirFormat:     "{model_username}/{responsetype}/{mediatype}/",
			FileFormat:    "{filename}.{ext}",
			TextLength:    0,
			SpaceReplacer: " ",
			DateFormat:    "2006-01-02",
		},
		DownloadOptions: DownloadOptions{
			SystemFreeMin: 0,
			AutoResume:    true,
			MaxPostCount:  0,
		},
		PerformanceOptions: PerformanceOptions{
			ThreadCount:   2,
			DownloadSems:  6,
			DownloadLimit: 0,
		},
		CDMOptions: CDMOptions{
			KeyMode: "default",
		},
		AdvancedOptions: AdvancedOptions{
			DynamicMode: "generic",
			Backend:     "auto",
			CacheMode:   "sqlite",
		},
	}
}

// Dir returns the directory holding config.json and related state
func Dir() string {
	if dir := os.Getenv("SUBSCRAPER_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "subscraper")
}

// DefaultPath returns the default config.json location
func DefaultPath() string {
	return filepath.Join(Dir(), "config.json")
}

// ProfileDir returns the directory of the active profile
func (c *Config) ProfileDir() string {
	return filepath.Join(Dir(), c.MainProfile)
}

// LoadFromEnv loads configuration overrides from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("SUBSCRAPER_PROFILE"); v != "" {
		c.MainProfile = v
	}
	if v := os.Getenv("SUBSCRAPER_SAVE_LOCATION"); v != "" {
		c.FileOptions.SaveLocation = v
	}
	if v := os.Getenv("SUBSCRAPER_DISCORD_WEBHOOK"); v != "" {
		c.DiscordWebhook = v
	}
	if v := os.Getenv("SUBSCRAPER_THREAD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PerformanceOptions.ThreadCount = n
		}
	}
	if v := os.Getenv("SUBSCRAPER_DOWNLOAD_SEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PerformanceOptions.DownloadSems = n
		}
	}
	if v := os.Getenv("SUBSCRAPER_DOWNLOAD_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			c.PerformanceOptions.DownloadLimit = n
		}
	}
	if v := os.Getenv("SUBSCRAPER_AUTO_RESUME"); v != "" {
		c.DownloadOptions.AutoResume = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("SUBSCRAPER_DYNAMIC_MODE"); v != "" {
		c.AdvancedOptions.DynamicMode = v
	}
	return nil
}

// LoadFromFile loads configuration from a JSON file.
//
// Missing files are not an error; the caller gets the config unchanged so
// first runs work before a config.json exists.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.MainProfile == "" {
		errs = append(errs, errors.New("main_profile is required"))
	}
	if !strings.HasSuffix(c.MainProfile, "_profile") {
		errs = append(errs, errors.New("main_profile must end with _profile"))
	}

	if c.FileOptions.SaveLocation == "" {
		errs = append(errs, errors.New("save_location is required"))
	}
	if c.FileOptions.FileFormat == "" {
		errs = append(errs, errors.New("file_format is required"))
	}
	if c.FileOptions.TextLength < 0 {
		errs = append(errs, errors.New("textlength cannot be negative"))
	}

	if c.DownloadOptions.SystemFreeMin < 0 {
		errs = append(errs, errors.New("system_free_min cannot be negative"))
	}
	if c.DownloadOptions.MaxPostCount < 0 {
		errs = append(errs, errors.New("max_post_count cannot be negative"))
	}

	if c.PerformanceOptions.ThreadCount <= 0 {
		errs = append(errs, errors.New("thread_count must be positive"))
	}
	if c.PerformanceOptions.DownloadSems <= 0 {
		errs = append(errs, errors.New("download_sems must be positive"))
	}
	if c.PerformanceOptions.DownloadSems > 32 {
		errs = append(errs, errors.New("download_sems should not exceed 32"))
	}
	if c.PerformanceOptions.DownloadLimit < 0 {
		errs = append(errs, errors.New("download_limit cannot be negative"))
	}

	switch c.CDMOptions.KeyMode {
	case "default", "manual", "keydb":
	default:
		errs = append(errs, errors.New("key-mode-default must be one of: default, manual, keydb"))
	}
	if c.CDMOptions.KeyMode == "keydb" && c.CDMOptions.KeyDBAPI == "" {
		errs = append(errs, errors.New("keydb_api is required when key-mode-default is keydb"))
	}

	switch c.AdvancedOptions.DynamicMode {
	case "generic", "manual":
	default:
		errs = append(errs, errors.New("dynamic-mode-default must be one of: generic, manual"))
	}

	switch c.AdvancedOptions.Backend {
	case "auto", "http1", "http2":
	default:
		errs = append(errs, errors.New("backend must be one of: auto, http1, http2"))
	}

	switch c.AdvancedOptions.CacheMode {
	case "sqlite", "json", "disabled":
	default:
		errs = append(errs, errors.New("cache-mode must be one of: sqlite, json, disabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save writes the configuration to a file atomically
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if profile, ok := flags["profile"].(string); ok && profile != "" {
		c.MainProfile = profile
	}
	if saveLocation, ok := flags["save-location"].(string); ok && saveLocation != "" {
		c.FileOptions.SaveLocation = saveLocation
	}
	if threads, ok := flags["threads"].(int); ok && threads > 0 {
		c.PerformanceOptions.ThreadCount = threads
	}
	if sems, ok := flags["download-sems"].(int); ok && sems > 0 {
		c.PerformanceOptions.DownloadSems = sems
	}
	if maxCount, ok := flags["max-count"].(int); ok && maxCount > 0 {
		c.DownloadOptions.MaxPostCount = maxCount
	}
	if dynamicMode, ok := flags["dynamic-mode"].(string); ok && dynamicMode != "" {
		c.AdvancedOptions.DynamicMode = dynamicMode
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(Dir(), ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
