package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"subscraper/pkg/logger"
	"subscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	profile    string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "subscraper",
	Short: "A subscription-platform content scraper",
	Long: `Subscraper downloads and organizes content from creators you are
subscribed to.

Features:
  - Scans timeline, messages, stories, highlights, purchases and more
  - Concurrent downloads with bandwidth limiting
  - SQLite cache for incremental rescans and dedup
  - Like/unlike post batches
  - Daemon mode for scheduled runs
  - Secure credential storage using system keychain
  - Interactive terminal UI with live progress`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if quiet {
			level = "error"
		}
		if err := logger.Initialize(logger.Options{Level: level, File: logFile}); err != nil {
			fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
			os.Exit(1)
		}

		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" && !quiet {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is the config dir's config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append JSON log lines to this file")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "auth profile to use")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`subscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
