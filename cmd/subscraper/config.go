package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subscraper/pkg/config"
	"subscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage the subscraper configuration.

Configuration is loaded with this precedence:
  - Command line flags (highest priority)
  - Environment variables
  - .env files
  - config.json
  - Default values (lowest priority)`,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run:   runConfigShow,
}

// configPathCmd represents the config path command
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		path := configFile
		if path == "" {
			path = config.DefaultPath()
		}
		fmt.Println(path)
	},
}

// configSetCmd represents the config set command
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and write it back to config.json.

Supported keys:
  save_location, dir_format, file_format, textlength, space_replacer,
  system_free_min, auto_resume, max_post_count,
  thread_count, download_sems, download_limit,
  discord, dynamic-mode, backend, cache-mode, main_profile`,
	Example: `  subscraper config set save_location ~/Data/subscraper
  subscraper config set thread_count 4
  subscraper config set auto_resume true`,
	Args: cobra.ExactArgs(2),
	Run:  runConfigSet,
}

// configThemeCmd represents the config theme command
var configThemeCmd = &cobra.Command{
	Use:   "theme <dark|light>",
	Short: "Set the terminal UI theme",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigTheme,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configThemeCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}
	fmt.Println(string(data))
	fmt.Println()
	ui.PrintInfo("Config file", configPathOrDefault())
	ui.PrintInfo("UI theme", config.LoadUISettings("").Theme)
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key, value := args[0], args[1]

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configPathOrDefault()); err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := applyConfigKey(cfg, key, value); err != nil {
		ui.PrintError("Failed to set value", err.Error())
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		ui.PrintError("Resulting configuration is invalid", err.Error())
		os.Exit(1)
	}

	if err := cfg.Save(configPathOrDefault()); err != nil {
		ui.PrintError("Failed to save configuration", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Set %s = %s", key, value))
}

func runConfigTheme(cmd *cobra.Command, args []string) {
	settings := config.LoadUISettings("")
	settings.Theme = strings.ToLower(args[0])
	if err := settings.Save(""); err != nil {
		ui.PrintError("Failed to save theme", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Theme set to: " + settings.Theme)
}

func configPathOrDefault() string {
	if configFile != "" {
		return configFile
	}
	return config.DefaultPath()
}

func applyConfigKey(cfg *config.Config, key, value string) error {
	atoi := func() (int, error) { return strconv.Atoi(value) }
	atoi64 := func() (int64, error) { return strconv.ParseInt(value, 10, 64) }
	atob := func() (bool, error) { return strconv.ParseBool(value) }

	switch key {
	case "main_profile":
		cfg.MainProfile = value
	case "discord":
		cfg.DiscordWebhook = value
	case "save_location":
		cfg.FileOptions.SaveLocation = value
	case "dir_format":
		cfg.FileOptions.DirFormat = value
	case "file_format":
		cfg.FileOptions.FileFormat = value
	case "space_replacer":
		cfg.FileOptions.SpaceReplacer = value
	case "textlength":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.FileOptions.TextLength = n
	case "system_free_min":
		n, err := atoi64()
		if err != nil {
			return err
		}
		cfg.DownloadOptions.SystemFreeMin = n
	case "auto_resume":
		b, err := atob()
		if err != nil {
			return err
		}
		cfg.DownloadOptions.AutoResume = b
	case "max_post_count":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.DownloadOptions.MaxPostCount = n
	case "thread_count":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.PerformanceOptions.ThreadCount = n
	case "download_sems":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.PerformanceOptions.DownloadSems = n
	case "download_limit":
		n, err := atoi64()
		if err != nil {
			return err
		}
		cfg.PerformanceOptions.DownloadLimit = n
	case "dynamic-mode":
		cfg.AdvancedOptions.DynamicMode = value
	case "backend":
		cfg.AdvancedOptions.Backend = value
	case "cache-mode":
		cfg.AdvancedOptions.CacheMode = value
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}
