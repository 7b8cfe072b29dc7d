package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"subscraper/pkg/config"
	"subscraper/pkg/db"
	"subscraper/pkg/events"
	"subscraper/pkg/logger"
	"subscraper/pkg/metadata"
	"subscraper/pkg/scraper"
	"subscraper/pkg/storage"
	"subscraper/pkg/ui"
	"subscraper/pkg/workflow"
)

var (
	// Metadata command flags
	metadataUsers  []string
	metadataAreas  []string
	metadataAll    bool
	metadataRescan bool
	exportDir      string
)

// metadataCmd refreshes the cache databases without downloading
var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Refresh cache databases without downloading media",
	Long: `Scan the selected creators and record every post and media item
in each model's cache database, but never download files.

Useful for auditing what a subscription holds, or for priming the
cache before a selective download. With --export the refreshed cache
is also written out as a JSON snapshot per creator.`,
	Example: `  # Refresh the cache for one creator
  subscraper metadata --user alice

  # Full re-audit of every subscription, exported as JSON
  subscraper metadata --all --rescrape-all --export ./exports`,
	RunE: runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)

	metadataCmd.Flags().StringSliceVarP(&metadataUsers, "user", "u", nil, "creator username (repeatable)")
	metadataCmd.Flags().StringSliceVar(&metadataAreas, "area", nil, "area to scan (repeatable; default all)")
	metadataCmd.Flags().BoolVar(&metadataAll, "all", false, "scan every active subscription")
	metadataCmd.Flags().BoolVar(&metadataRescan, "rescrape-all", false, "ignore saved scan watermarks and rescan everything")
	metadataCmd.Flags().StringVar(&exportDir, "export", "", "write a JSON snapshot per creator into this directory")
}

func runMetadata(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if profile != "" {
		flags["profile"] = profile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildClient(ctx, cfg, log)
	if err != nil {
		ui.PrintError("Failed to set up API client", err.Error())
		os.Exit(1)
	}

	usernames := metadataUsers
	if metadataAll {
		usernames, err = listSubscriptions(ctx, client)
		if err != nil {
			ui.PrintError("Failed to list subscriptions", err.Error())
			os.Exit(1)
		}
	}
	if len(usernames) == 0 {
		ui.PrintError("No creators selected", "use --user or --all")
		os.Exit(1)
	}

	areas, err := parseAreas(metadataAreas)
	if err != nil {
		ui.PrintError("Invalid area", err.Error())
		os.Exit(1)
	}

	store, err := storage.NewManager(cfg, log)
	if err != nil {
		ui.PrintError("Failed to prepare save location", err.Error())
		os.Exit(1)
	}

	hub := events.NewHub(log)
	defer hub.Close()

	s := scraper.New(client, cfg, store, hub, log)
	w := workflow.New(s, cfg, hub, log)

	_, stopPrinter := ui.NewStatusPrinter(hub)
	stats, err := w.Run(ctx, workflow.Options{
		Usernames:    usernames,
		Areas:        areas,
		ForceRescan:  metadataRescan,
		MetadataOnly: true,
	})
	stopPrinter()
	if err != nil {
		ui.PrintError("METADATA SCAN FAILED", err.Error())
		os.Exit(1)
	}

	if exportDir != "" {
		if err := exportSnapshots(cfg, usernames); err != nil {
			ui.PrintError("Export failed", err.Error())
			os.Exit(1)
		}
	}

	ui.PrintSuccess("[METADATA SCAN COMPLETED]")
	ui.PrintInfo("Posts scanned", fmt.Sprintf("%d across %d creators", stats.Scanned, stats.Models))
	return nil
}

// exportSnapshots writes one JSON snapshot per creator from its cache.
func exportSnapshots(cfg *config.Config, usernames []string) error {
	log := logger.GetLogger()

	for _, username := range usernames {
		dbPath := db.ModelDBPath(cfg.FileOptions.SaveLocation, username)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			continue
		}

		store, err := db.Open(dbPath, log)
		if err != nil {
			return err
		}

		out := filepath.Join(exportDir, username+".json")
		err = metadata.Export(store, username, out)
		store.Close()
		if err != nil {
			return err
		}
		ui.PrintInfo("Exported", out)
	}
	return nil
}
