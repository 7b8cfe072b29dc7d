package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subscraper/pkg/auth"
	"subscraper/pkg/config"
	"subscraper/pkg/events"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
	"subscraper/pkg/platform"
	"subscraper/pkg/scraper"
	"subscraper/pkg/storage"
	"subscraper/pkg/ui"
	"subscraper/pkg/ui/tui"
	"subscraper/pkg/workflow"
)

var (
	// Scrape command flags
	scrapeUsers    []string
	scrapeAreas    []string
	scrapeActions  []string
	scrapeAll      bool
	scrapePaid     bool
	rescrapeAll    bool
	allowDupes     bool
	purgeFirst     bool
	daemonMode     bool
	daemonInterval time.Duration
	useTUI         bool
	threadCount    int
	downloadSems   int
	maxPostCount   int
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scan subscribed creators and download their content",
	Long: `Scan one or more creators and run the selected actions.

Areas default to all download areas (Timeline, Pinned, Archived,
Highlights, Stories, Messages, Purchased, Streams, Labels). Scans are
incremental: posts older than the last completed scan are skipped
unless --rescrape-all is given.

Valid actions: download, like, unlike. Like and unlike only apply to
the likeable areas (Timeline, Pinned, Archived, Streams, Labels).`,
	Example: `  # Download everything new from two creators
  subscraper scrape --user alice --user bob

  # Messages and purchases only
  subscraper scrape --user alice --area Messages --area Purchased

  # Like every timeline post
  subscraper scrape --user alice --area Timeline --action like

  # Run every 6 hours
  subscraper scrape --all --daemon --interval 6h

  # Full rescan with the interactive UI
  subscraper scrape --user alice --rescrape-all --tui`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringSliceVarP(&scrapeUsers, "user", "u", nil, "creator username (repeatable)")
	scrapeCmd.Flags().StringSliceVar(&scrapeAreas, "area", nil, "area to scan (repeatable; default all)")
	scrapeCmd.Flags().StringSliceVar(&scrapeActions, "action", []string{"download"}, "action to run: download, like, unlike")
	scrapeCmd.Flags().BoolVar(&scrapeAll, "all", false, "scrape every active subscription")
	scrapeCmd.Flags().BoolVar(&scrapePaid, "scrape-paid", false, "include purchased content")
	scrapeCmd.Flags().BoolVar(&rescrapeAll, "rescrape-all", false, "ignore saved scan watermarks and rescan everything")
	scrapeCmd.Flags().BoolVar(&allowDupes, "allow-dupes", false, "re-download media already marked downloaded")
	scrapeCmd.Flags().BoolVar(&purgeFirst, "purge", false, "delete each model's cache and files before scraping")
	scrapeCmd.Flags().BoolVar(&daemonMode, "daemon", false, "repeat the run on an interval")
	scrapeCmd.Flags().DurationVar(&daemonInterval, "interval", time.Hour, "pause between daemon runs")
	scrapeCmd.Flags().BoolVar(&useTUI, "tui", false, "interactive terminal UI with live progress")
	scrapeCmd.Flags().IntVar(&threadCount, "threads", 0, "concurrent area scans (overrides config)")
	scrapeCmd.Flags().IntVar(&downloadSems, "download-sems", 0, "concurrent downloads (overrides config)")
	scrapeCmd.Flags().IntVar(&maxPostCount, "max-count", 0, "stop each area after this many posts")
}

func runScrape(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if profile != "" {
		flags["profile"] = profile
	}
	if threadCount > 0 {
		flags["threads"] = threadCount
	}
	if downloadSems > 0 {
		flags["download-sems"] = downloadSems
	}
	if maxPostCount > 0 {
		flags["max-count"] = maxPostCount
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

	usernames := scrapeUsers
	if scrapeAll {
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

	areas, err := parseAreas(scrapeAreas)
	if err != nil {
		ui.PrintError("Invalid area", err.Error())
		os.Exit(1)
	}
	actions, err := parseActions(scrapeActions)
	if err != nil {
		ui.PrintError("Invalid action", err.Error())
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

	opts := workflow.Options{
		Usernames:   usernames,
		Areas:       areas,
		Actions:     actions,
		ScrapePaid:  scrapePaid,
		ForceRescan: rescrapeAll,
		AllowDupes:  allowDupes,
		PurgeFirst:  purgeFirst,
	}

	if useTUI {
		return runWithTUI(ctx, w, hub, opts)
	}
	return runPlain(ctx, w, hub, opts)
}

func runPlain(ctx context.Context, w *workflow.Workflow, hub *events.Hub, opts workflow.Options) error {
	_, stopPrinter := ui.NewStatusPrinter(hub)

	var err error
	if daemonMode {
		err = w.RunDaemon(ctx, opts, workflow.DaemonOptions{Interval: daemonInterval})
		if err == context.Canceled {
			err = nil
		}
	} else {
		var stats *scraper.RunStats
		stats, err = w.Run(ctx, opts)
		if stats != nil && stats.Failed > 0 && err == nil {
			err = fmt.Errorf("%d downloads failed", stats.Failed)
		}
	}

	stopPrinter()
	if err != nil {
		ui.PrintError("SCRAPE FAILED", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("[SCRAPE COMPLETED]")
	return nil
}

func runWithTUI(ctx context.Context, w *workflow.Workflow, hub *events.Hub, opts workflow.Options) error {
	terminal := tui.NewTUI(hub, loadThemeName())

	runDone := make(chan error, 1)
	go func() {
		if daemonMode {
			runDone <- w.RunDaemon(ctx, opts, workflow.DaemonOptions{Interval: daemonInterval})
			return
		}
		_, err := w.Run(ctx, opts)
		runDone <- err
	}()

	tuiErr := terminal.Start()

	select {
	case err := <-runDone:
		if err != nil && err != context.Canceled {
			return err
		}
	default:
		// User quit the TUI mid-run; the signal context keeps the
		// scraper alive until interrupted.
	}
	return tuiErr
}

func loadThemeName() string {
	return config.LoadUISettings("").Theme
}

// buildClient resolves credentials and signing rules into an API client.
func buildClient(ctx context.Context, cfg *config.Config, log logger.Logger) (*platform.Client, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, err
	}

	var account *auth.Account
	if profile != "" {
		account, err = manager.Retrieve(profile)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("no stored credentials: run 'subscraper auth set' first: %w", err)
	}
	if err := account.Auth.Validate(); err != nil {
		return nil, err
	}

	var signer *platform.Signer
	switch cfg.AdvancedOptions.DynamicMode {
	case "manual":
		rules, err := platform.LoadRulesFile(filepath.Join(config.Dir(), "dynamic_rules.json"))
		if err != nil {
			return nil, fmt.Errorf("manual signing mode needs %s: %w",
				filepath.Join(config.Dir(), "dynamic_rules.json"), err)
		}
		signer, err = platform.NewSigner(rules, log)
		if err != nil {
			return nil, err
		}
	default:
		signer, err = platform.NewDynamicSigner(ctx, "", config.Dir(), log)
		if err != nil {
			return nil, err
		}
	}

	client := platform.NewClient(account, signer, 60*time.Second, log)
	client.ConfigureBackend(cfg.AdvancedOptions.Backend)

	user, err := client.CheckAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication check failed: %w", err)
	}
	log.InfoWithFields("Authenticated", map[string]interface{}{
		"username": user.Username,
	})
	return client, nil
}

func listSubscriptions(ctx context.Context, client *platform.Client) ([]string, error) {
	var usernames []string
	offset := 0
	const pageSize = 50
	for {
		page, err := client.GetSubscriptions(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}
		for _, sub := range page.List {
			if sub.Active {
				usernames = append(usernames, sub.Username)
			}
		}
		if !page.HasMore || len(page.List) == 0 {
			break
		}
		offset += len(page.List)
	}
	return usernames, nil
}

func parseAreas(raw []string) ([]models.Area, error) {
	areas := make([]models.Area, 0, len(raw))
	for _, r := range raw {
		area, ok := models.ParseArea(r)
		if !ok {
			return nil, fmt.Errorf("unknown area %q (valid: %v)", r, models.DownloadAreas)
		}
		areas = append(areas, area)
	}
	return areas, nil
}

func parseActions(raw []string) ([]scraper.Action, error) {
	actions := make([]scraper.Action, 0, len(raw))
	for _, r := range raw {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "download":
			actions = append(actions, scraper.ActionDownload)
		case "like":
			actions = append(actions, scraper.ActionLike)
		case "unlike":
			actions = append(actions, scraper.ActionUnlike)
		default:
			return nil, fmt.Errorf("unknown action %q (valid: download, like, unlike)", r)
		}
	}
	return actions, nil
}
