// Package downloader runs the concurrent media download workers feeding
// results back to the scrape orchestrator.
package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"subscraper/pkg/logger"
	"subscraper/pkg/ratelimit"
	"subscraper/pkg/retry"
)

// downloadAttempts bounds retries of one media fetch. Network, rate-limit
// and server errors are retried; auth, not-found and storage errors fail
// the job immediately.
const downloadAttempts = 3

// Job is a single media download task.
type Job struct {
	URL       string
	MediaID   int64
	PostID    int64
	Username  string
	Directory string
	Filename  string
}

// Result is the outcome of one Job.
type Result struct {
	Job      Job
	Success  bool
	Skipped  bool
	Error    error
	Duration time.Duration
	Size     int64
	Hash     string
}

// MediaFetcher streams a media URL into a writer.
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, url string, w io.Writer) (int64, error)
}

// MediaStore persists a media stream at its final location.
type MediaStore interface {
	Exists(dir, file string) bool
	Save(r io.Reader, dir, file string) (int64, error)
}

// WorkerPool manages concurrent download workers.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     MediaFetcher
	store       MediaStore
	rateLimiter ratelimit.Limiter
	bytesPerSec int64
	backoff     retry.BackoffStrategy
	logger      logger.Logger
}

// NewWorkerPool builds a pool of numWorkers download workers.
// bytesPerSec caps aggregate throughput per worker; zero means no cap.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	fetcher MediaFetcher,
	store MediaStore,
	rateLimiter ratelimit.Limiter,
	bytesPerSec int64,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		store:       store,
		rateLimiter: rateLimiter,
		bytesPerSec: bytesPerSec,
		backoff:     retry.DefaultExponentialBackoff(),
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting download workers", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop drains remaining jobs, waits for workers, and closes the result
// channel.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
	wp.logger.Info("Download workers stopped")
}

// Submit queues a job; fails once the pool is shutting down.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel carrying completed downloads.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// QueueSize returns how many jobs are waiting.
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	if wp.store.Exists(job.Directory, job.Filename) {
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if err := ratelimit.WaitContext(wp.ctx, wp.rateLimiter); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	var size int64
	var hash string
	err := retry.Do(func() error {
		var attemptErr error
		size, hash, attemptErr = wp.downloadOnce(job)
		return attemptErr
	}, wp.retryConfig())
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err
		wp.logger.ErrorWithFields("Media download failed", map[string]interface{}{
			"worker_id": workerID,
			"media_id":  job.MediaID,
			"username":  job.Username,
			"error":     err.Error(),
		})
		return result
	}

	result.Success = true
	result.Size = size
	result.Hash = hash

	logger.LogDownload(job.Username, job.MediaID, "", true, nil)
	return result
}

// downloadOnce performs a single fetch-and-save attempt. The store writes
// through a temp file, so a failed attempt leaves nothing behind and the
// job can be retried cleanly.
func (wp *WorkerPool) downloadOnce(job Job) (int64, string, error) {
	// Fetcher writes into the pipe while the store reads from it, so
	// large videos never sit fully in memory.
	pr, pw := io.Pipe()
	hasher := sha256.New()

	var fetchErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		var w io.Writer = io.MultiWriter(pw, hasher)
		if wp.bytesPerSec > 0 {
			w = newThrottledWriter(wp.ctx, w, wp.bytesPerSec)
		}
		_, fetchErr = wp.fetcher.DownloadMedia(wp.ctx, job.URL, w)
		pw.CloseWithError(fetchErr)
	}()

	size, saveErr := wp.store.Save(pr, job.Directory, job.Filename)
	<-done

	if fetchErr != nil {
		return size, "", fmt.Errorf("download failed: %w", fetchErr)
	}
	if saveErr != nil {
		return size, "", fmt.Errorf("save failed: %w", saveErr)
	}
	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}

func (wp *WorkerPool) retryConfig() *retry.Config {
	return &retry.Config{
		MaxAttempts: downloadAttempts,
		Backoff:     wp.backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     wp.ctx,
		Logger:      wp.logger,
	}
}
