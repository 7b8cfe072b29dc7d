// Package workflow turns user selections into scraper runs. It owns
// the daemon loop, pre-run purging and webhook notifications so the
// CLI and TUI share one entry point.
package workflow

import (
	"context"
	"fmt"

	"subscraper/pkg/config"
	"subscraper/pkg/events"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
	"subscraper/pkg/scraper"
)

// Runner executes a scrape. *scraper.Scraper satisfies it; tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, opts scraper.RunOptions) (*scraper.RunStats, error)
}

// Options is the user's selection for a run.
type Options struct {
	Usernames []string
	Areas     []models.Area
	Actions   []scraper.Action

	// ScrapePaid adds the purchased area even when not selected
	ScrapePaid bool
	// ForceRescan ignores saved scan watermarks
	ForceRescan bool
	// AllowDupes re-downloads media already marked downloaded
	AllowDupes bool
	// PurgeFirst removes each model's cache database and downloaded
	// files before scraping
	PurgeFirst bool
	// MetadataOnly refreshes the cache database without downloading
	MetadataOnly bool
}

// Workflow coordinates runs, the daemon loop and notifications.
type Workflow struct {
	runner   Runner
	cfg      *config.Config
	hub      *events.Hub
	notifier *Notifier
	logger   logger.Logger
}

func New(runner Runner, cfg *config.Config, hub *events.Hub, log logger.Logger) *Workflow {
	return &Workflow{
		runner:   runner,
		cfg:      cfg,
		hub:      hub,
		notifier: NewNotifier(cfg.DiscordWebhook, log),
		logger:   log,
	}
}

// Run executes a single scrape for the given selection.
func (w *Workflow) Run(ctx context.Context, opts Options) (*scraper.RunStats, error) {
	if opts.PurgeFirst {
		for _, username := range opts.Usernames {
			report, err := Purge(w.cfg, username, true, w.logger)
			if err != nil {
				return nil, fmt.Errorf("purge failed for %s: %w", username, err)
			}
			w.logger.InfoWithFields("Purged model cache", map[string]interface{}{
				"username":      username,
				"files_removed": report.FilesRemoved,
				"bytes_freed":   report.BytesFreed,
			})
		}
	}

	stats, err := w.runner.Run(ctx, w.buildRunOptions(opts))
	if err != nil {
		w.notifier.Notify(ctx, fmt.Sprintf("Run failed: %v", err))
		return stats, err
	}

	w.notifier.Notify(ctx, fmt.Sprintf(
		"Run finished: %d models, %d posts scanned, %d downloaded, %d failed",
		stats.Models, stats.Scanned, stats.Downloaded, stats.Failed))
	return stats, nil
}

// buildRunOptions maps the selection onto scraper options, expanding
// the scrape-paid toggle into the purchased area.
func (w *Workflow) buildRunOptions(opts Options) scraper.RunOptions {
	areas := opts.Areas
	if len(areas) == 0 {
		areas = append([]models.Area(nil), models.DownloadAreas...)
	}
	if opts.ScrapePaid && !containsArea(areas, models.AreaPurchased) {
		areas = append(append([]models.Area(nil), areas...), models.AreaPurchased)
	}

	return scraper.RunOptions{
		Usernames:    opts.Usernames,
		Areas:        areas,
		Actions:      opts.Actions,
		ForceRescan:  opts.ForceRescan,
		AllowDupes:   opts.AllowDupes,
		MetadataOnly: opts.MetadataOnly,
	}
}

func containsArea(areas []models.Area, want models.Area) bool {
	for _, a := range areas {
		if a == want {
			return true
		}
	}
	return false
}
