package workflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subscraper/pkg/config"
	"subscraper/pkg/db"
	"subscraper/pkg/events"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
	"subscraper/pkg/scraper"
)

type fakeRunner struct {
	calls []scraper.RunOptions
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, opts scraper.RunOptions) (*scraper.RunStats, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.RunStats{Models: len(opts.Usernames)}, nil
}

func testWorkflow(t *testing.T, runner Runner) (*Workflow, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.FileOptions.SaveLocation = t.TempDir()
	hub := events.NewHub(logger.NewNopLogger())
	t.Cleanup(hub.Close)
	return New(runner, cfg, hub, logger.NewNopLogger()), cfg
}

func TestRunTranslatesOptions(t *testing.T) {
	runner := &fakeRunner{}
	w, _ := testWorkflow(t, runner)

	_, err := w.Run(context.Background(), Options{
		Usernames:   []string{"alice"},
		Areas:       []models.Area{models.AreaTimeline},
		ScrapePaid:  true,
		ForceRescan: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("runner called %d times", len(runner.calls))
	}
	got := runner.calls[0]
	if !got.ForceRescan {
		t.Error("ForceRescan not passed through")
	}
	want := []models.Area{models.AreaTimeline, models.AreaPurchased}
	if len(got.Areas) != len(want) {
		t.Fatalf("areas = %v, want %v", got.Areas, want)
	}
	for i := range want {
		if got.Areas[i] != want[i] {
			t.Errorf("areas[%d] = %v, want %v", i, got.Areas[i], want[i])
		}
	}
}

func TestRunScrapePaidNoDuplicate(t *testing.T) {
	runner := &fakeRunner{}
	w, _ := testWorkflow(t, runner)

	_, err := w.Run(context.Background(), Options{
		Usernames:  []string{"alice"},
		ScrapePaid: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	for _, a := range runner.calls[0].Areas {
		if a == models.AreaPurchased {
			count++
		}
	}
	if count != 1 {
		t.Errorf("purchased area appears %d times, want 1", count)
	}
}

func TestDaemonRunsAndStops(t *testing.T) {
	runner := &fakeRunner{}
	w, _ := testWorkflow(t, runner)

	err := w.RunDaemon(context.Background(), Options{Usernames: []string{"alice"}}, DaemonOptions{
		Interval: 5 * time.Millisecond,
		MaxRuns:  3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(runner.calls) != 3 {
		t.Errorf("daemon ran %d times, want 3", len(runner.calls))
	}
}

func TestDaemonCancellation(t *testing.T) {
	runner := &fakeRunner{}
	w, _ := testWorkflow(t, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.RunDaemon(ctx, Options{Usernames: []string{"alice"}}, DaemonOptions{
			Interval: time.Hour,
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunDaemon returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}
	if len(runner.calls) != 1 {
		t.Errorf("daemon ran %d times before cancel, want 1", len(runner.calls))
	}
}

func TestDaemonRejectsZeroInterval(t *testing.T) {
	w, _ := testWorkflow(t, &fakeRunner{})
	if err := w.RunDaemon(context.Background(), Options{}, DaemonOptions{}); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestNotifierPostsMessage(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		got = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, logger.NewNopLogger())
	n.Notify(context.Background(), "run finished")

	if got != `{"content":"run finished"}` {
		t.Errorf("webhook body = %s", got)
	}
}

func TestNotifierEmptyURLIsNoop(t *testing.T) {
	n := NewNotifier("", logger.NewNopLogger())
	n.Notify(context.Background(), "ignored")
}

func TestPurgeRemovesFilesAndDatabase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FileOptions.SaveLocation = t.TempDir()
	log := logger.NewNopLogger()

	dbPath := db.ModelDBPath(cfg.FileOptions.SaveLocation, "alice")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatal(err)
	}
	store, err := db.Open(dbPath, log)
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(cfg.FileOptions.SaveLocation, "alice", "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "pic.jpg")
	if err := os.WriteFile(file, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := store.UpsertMedia(db.MediaRecord{MediaID: 1, PostID: 1, APIType: "post", PostedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkDownloaded(1, 1, dir, "pic.jpg", 4, "abc"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	report, err := Purge(cfg, "alice", true, log)
	if err != nil {
		t.Fatal(err)
	}
	if report.FilesRemoved != 1 || report.BytesFreed != 4 || !report.DatabaseRemoved {
		t.Errorf("report = %+v", report)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("downloaded file still present")
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("cache database still present")
	}
}

func TestPurgeMissingDatabase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FileOptions.SaveLocation = t.TempDir()

	report, err := Purge(cfg, "nobody", true, logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	if report.FilesRemoved != 0 || report.DatabaseRemoved {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestPurgeSkipsPathsOutsideRoot(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FileOptions.SaveLocation = t.TempDir()
	log := logger.NewNopLogger()

	outside := filepath.Join(t.TempDir(), "escape.jpg")
	if err := os.WriteFile(outside, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	dbPath := db.ModelDBPath(cfg.FileOptions.SaveLocation, "alice")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatal(err)
	}
	store, err := db.Open(dbPath, log)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertMedia(db.MediaRecord{MediaID: 1, PostID: 1, APIType: "post", PostedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkDownloaded(1, 1, filepath.Dir(outside), "escape.jpg", 4, "abc"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	report, err := Purge(cfg, "alice", false, log)
	if err != nil {
		t.Fatal(err)
	}
	if report.FilesRemoved != 0 {
		t.Errorf("removed %d files, want 0", report.FilesRemoved)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Error("file outside save location was removed")
	}
}
