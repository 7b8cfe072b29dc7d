// Package scraper orchestrates the scan-and-download pipeline: it pages
// each selected area of each selected model, records results in the
// per-model cache database, and feeds media to the download workers.
package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"subscraper/internal/downloader"
	"subscraper/pkg/checkpoint"
	"subscraper/pkg/config"
	"subscraper/pkg/db"
	"subscraper/pkg/events"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
	"subscraper/pkg/platform"
	"subscraper/pkg/ratelimit"
	"subscraper/pkg/storage"
)

// Action selects what a run does with the content it finds.
type Action string

const (
	ActionDownload Action = "download"
	ActionLike     Action = "like"
	ActionUnlike   Action = "unlike"
)

// RunOptions selects what a run covers.
type RunOptions struct {
	Usernames []string
	Areas     []models.Area
	Actions   []Action
	// ForceRescan ignores saved scan times and re-pages whole areas.
	ForceRescan bool
	// AllowDupes re-downloads media already recorded in the cache.
	AllowDupes bool
	// MetadataOnly scans and records everything but never queues
	// downloads.
	MetadataOnly bool
}

// RunStats summarizes a completed run.
type RunStats struct {
	Models     int
	Scanned    int
	Queued     int
	Downloaded int
	Failed     int
	Liked      int
	Unliked    int
}

// runCounters collects stats across scan and result goroutines.
type runCounters struct {
	models     atomic.Int64
	scanned    atomic.Int64
	queued     atomic.Int64
	downloaded atomic.Int64
	failed     atomic.Int64
	liked      atomic.Int64
	unliked    atomic.Int64
}

func (c *runCounters) stats() *RunStats {
	return &RunStats{
		Models:     int(c.models.Load()),
		Scanned:    int(c.scanned.Load()),
		Queued:     int(c.queued.Load()),
		Downloaded: int(c.downloaded.Load()),
		Failed:     int(c.failed.Load()),
		Liked:      int(c.liked.Load()),
		Unliked:    int(c.unliked.Load()),
	}
}

// Scraper drives scans across models and areas.
type Scraper struct {
	client      Client
	cfg         *config.Config
	storage     *storage.Manager
	hub         *events.Hub
	limiter     ratelimit.Limiter
	likeLimiter ratelimit.Limiter
	logger      logger.Logger
}

// New wires a Scraper from its dependencies. The rate limiter paces API
// page fetches; downloads are paced separately by the worker pool.
// Favorite writes get their own sliding window so they never burst the
// way page reads are allowed to.
func New(client Client, cfg *config.Config, store *storage.Manager, hub *events.Hub, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		client:      client,
		cfg:         cfg,
		storage:     store,
		hub:         hub,
		limiter:     ratelimit.NewTokenBucket(60, time.Minute),
		likeLimiter: ratelimit.NewSlidingWindow(30, time.Minute),
		logger:      log,
	}
}

// SetLimiter overrides the API pacing limiter.
func (s *Scraper) SetLimiter(l ratelimit.Limiter) {
	s.limiter = l
}

// SetLikeLimiter overrides the limiter pacing like and unlike writes.
func (s *Scraper) SetLikeLimiter(l ratelimit.Limiter) {
	s.likeLimiter = l
}

// Run executes the selected actions for every model and area.
func (s *Scraper) Run(ctx context.Context, opts RunOptions) (*RunStats, error) {
	if len(opts.Usernames) == 0 {
		return nil, fmt.Errorf("no models selected")
	}
	if len(opts.Areas) == 0 {
		opts.Areas = models.DownloadAreas
	}
	if len(opts.Actions) == 0 {
		opts.Actions = []Action{ActionDownload}
	}
	// Disabling the cache means nothing is trusted from earlier runs:
	// watermarks are ignored and recorded downloads repeat.
	if s.cfg.AdvancedOptions.CacheMode == "disabled" {
		opts.ForceRescan = true
		opts.AllowDupes = true
	}

	counters := &runCounters{}
	s.hub.Emit(events.Event{Type: events.ScrapeStarted, Message: fmt.Sprintf("%d models", len(opts.Usernames))})
	defer s.hub.Emit(events.Event{Type: events.ScrapeFinished})

	for _, username := range opts.Usernames {
		if err := ctx.Err(); err != nil {
			return counters.stats(), err
		}
		if err := s.runModel(ctx, username, opts, counters); err != nil {
			if ctx.Err() != nil {
				return counters.stats(), ctx.Err()
			}
			s.logger.ErrorWithFields("Model run failed", map[string]interface{}{
				"username": username,
				"error":    err.Error(),
			})
			continue
		}
		counters.models.Add(1)
	}
	return counters.stats(), nil
}

func (s *Scraper) runModel(ctx context.Context, username string, opts RunOptions, counters *runCounters) error {
	user, err := s.client.GetUser(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to resolve model %s: %w", username, err)
	}

	store, err := db.Open(db.ModelDBPath(s.cfg.FileOptions.SaveLocation, user.Username), s.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.UpsertModel(user.ID, user.Username); err != nil {
		return err
	}
	if opts.ForceRescan {
		if err := store.ResetLastScan(user.ID); err != nil {
			return err
		}
	}

	for _, action := range opts.Actions {
		switch action {
		case ActionDownload:
			if err := s.scanAndDownload(ctx, user, store, opts, counters); err != nil {
				return err
			}
		case ActionLike, ActionUnlike:
			if err := s.likeRun(ctx, user, opts, action, counters); err != nil {
				return err
			}
		}
	}
	return nil
}

// scanAndDownload pages every selected area, upserting into the cache
// and queueing new media on the download pool.
func (s *Scraper) scanAndDownload(ctx context.Context, user *platform.User, store *db.Store, opts RunOptions, counters *runCounters) error {
	cpMgr, err := checkpoint.NewManager(user.Username)
	if err != nil {
		return err
	}
	var cp *checkpoint.Checkpoint
	if s.cfg.DownloadOptions.AutoResume {
		cp, err = cpMgr.Load()
		if err != nil {
			s.logger.WarnWithFields("Ignoring unreadable checkpoint", map[string]interface{}{
				"username": user.Username,
				"error":    err.Error(),
			})
		}
	}
	if cp == nil {
		cp, err = cpMgr.Create(user.Username, user.ID)
		if err != nil {
			return err
		}
	}

	pool := downloader.NewWorkerPool(
		ctx,
		s.cfg.PerformanceOptions.DownloadSems,
		s.client,
		s.storage,
		s.limiter,
		s.cfg.PerformanceOptions.DownloadLimit,
		s.logger,
	)
	pool.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.consumeResults(pool.Results(), user.Username, store, counters)
	}()

	sc := &modelScan{
		scraper:  s,
		user:     user,
		store:    store,
		pool:     pool,
		cpMgr:    cpMgr,
		cp:       cp,
		opts:     opts,
		counters: counters,
	}
	if !opts.AllowDupes {
		sc.downloaded, err = store.DownloadedMediaIDs()
		if err != nil {
			pool.Stop()
			wg.Wait()
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.PerformanceOptions.ThreadCount))
	for _, area := range opts.Areas {
		area := area
		g.Go(func() error {
			return sc.scanArea(gctx, area)
		})
	}
	scanErr := g.Wait()

	pool.Stop()
	wg.Wait()

	if scanErr != nil {
		return scanErr
	}
	// All areas completed; the next run starts fresh
	if err := cpMgr.Delete(); err != nil {
		s.logger.WarnWithFields("Failed to remove checkpoint", map[string]interface{}{
			"username": user.Username,
			"error":    err.Error(),
		})
	}
	return nil
}

func (s *Scraper) consumeResults(results <-chan downloader.Result, username string, store *db.Store, counters *runCounters) {
	for r := range results {
		if r.Success {
			counters.downloaded.Add(1)
			if !r.Skipped {
				if err := store.MarkDownloaded(r.Job.MediaID, r.Job.PostID, r.Job.Directory, r.Job.Filename, r.Size, r.Hash); err != nil {
					s.logger.WarnWithFields("Failed to record download", map[string]interface{}{
						"media_id": r.Job.MediaID,
						"error":    err.Error(),
					})
				}
			}
		} else {
			counters.failed.Add(1)
		}
		s.hub.DownloadDone(username, r.Job.MediaID, r.Success)
	}
}
