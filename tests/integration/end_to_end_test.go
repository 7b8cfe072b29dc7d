package integration

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subscraper/pkg/db"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
	"subscraper/pkg/scraper"
)

func viewableMedia(id int64) FixtureMedia {
	return FixtureMedia{ID: id, Type: "photo", CanView: true}
}

func openModelDB(t *testing.T, saveLocation, username string) *db.Store {
	t.Helper()
	store, err := db.Open(db.ModelDBPath(saveLocation, username), logger.NewNopLogger())
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEndToEndTimelineDownload(t *testing.T) {
	now := time.Now()
	env := newTestEnv(t, 100, "alice")
	env.server.TimelinePages[""] = FixturePage{
		Posts: []FixturePost{
			{ID: 1, PostedAt: now, Media: []FixtureMedia{viewableMedia(11), viewableMedia(12)}},
			{ID: 2, PostedAt: now.Add(-time.Hour), Media: []FixtureMedia{viewableMedia(21)}},
		},
		Next: "cursor-1",
	}
	env.server.TimelinePages["cursor-1"] = FixturePage{
		Posts: []FixturePost{
			{ID: 3, PostedAt: now.Add(-2 * time.Hour), Media: []FixtureMedia{viewableMedia(31)}},
		},
	}

	stats, err := env.scraper.Run(context.Background(), scraper.RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaTimeline},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Models != 1 || stats.Scanned != 3 {
		t.Errorf("stats = %+v, want 1 model 3 scanned", stats)
	}
	if stats.Downloaded != 4 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 4 downloads", stats)
	}

	// Every cache entry points at a real file holding the CDN bytes
	store := openModelDB(t, env.cfg.FileOptions.SaveLocation, "alice")
	files, err := store.DownloadedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 4 {
		t.Fatalf("DownloadedFiles() = %d entries, want 4", len(files))
	}
	for _, entry := range files {
		data, err := os.ReadFile(filepath.Join(entry[0], entry[1]))
		if err != nil {
			t.Errorf("downloaded file missing: %v", err)
			continue
		}
		if !bytes.HasPrefix(data, []byte("media-bytes-")) {
			t.Errorf("file %s holds %q, want CDN payload", entry[1], data)
		}
	}
}

func TestEndToEndIncrementalRerun(t *testing.T) {
	now := time.Now()
	env := newTestEnv(t, 100, "alice")
	env.server.TimelinePages[""] = FixturePage{
		Posts: []FixturePost{
			{ID: 1, PostedAt: now.Add(-time.Minute), Media: []FixtureMedia{viewableMedia(11)}},
		},
	}

	opts := scraper.RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaTimeline},
	}

	stats, err := env.scraper.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if stats.Scanned != 1 || stats.Downloaded != 1 {
		t.Fatalf("first run stats = %+v, want 1 scanned 1 downloaded", stats)
	}

	// The watermark from the first run hides the already-seen post
	stats, err = env.scraper.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if stats.Scanned != 0 || stats.Downloaded != 0 {
		t.Errorf("second run stats = %+v, want nothing scanned", stats)
	}
}

func TestEndToEndLockedContentSkipped(t *testing.T) {
	env := newTestEnv(t, 100, "alice")
	env.server.TimelinePages[""] = FixturePage{
		Posts: []FixturePost{
			{
				ID:       1,
				Price:    15,
				PostedAt: time.Now(),
				Media:    []FixtureMedia{{ID: 11, Type: "video", CanView: false, Duration: 30}},
			},
		},
	}

	stats, err := env.scraper.Run(context.Background(), scraper.RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaTimeline},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Scanned != 1 {
		t.Errorf("Scanned = %d, want 1", stats.Scanned)
	}
	if stats.Queued != 0 || stats.Downloaded != 0 {
		t.Errorf("stats = %+v, want locked media never queued", stats)
	}

	store := openModelDB(t, env.cfg.FileOptions.SaveLocation, "alice")
	files, err := store.DownloadedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("DownloadedFiles() = %d entries, want 0", len(files))
	}
}

func TestEndToEndStoriesAndMessages(t *testing.T) {
	now := time.Now()
	env := newTestEnv(t, 100, "alice")
	env.server.Stories = []FixtureStory{
		{ID: 501, PostedAt: now, Media: []FixtureMedia{viewableMedia(51)}},
	}
	env.server.Messages = []FixturePost{
		{ID: 601, Text: "hello", IsOpened: true, PostedAt: now, Media: []FixtureMedia{viewableMedia(61)}},
	}

	stats, err := env.scraper.Run(context.Background(), scraper.RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaStories, models.AreaMessages},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Scanned != 2 {
		t.Errorf("Scanned = %d, want 2", stats.Scanned)
	}
	if stats.Downloaded != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 2 downloads", stats)
	}
}

func TestEndToEndLikeAction(t *testing.T) {
	now := time.Now()
	env := newTestEnv(t, 100, "alice")
	env.server.TimelinePages[""] = FixturePage{
		Posts: []FixturePost{
			{ID: 1, PostedAt: now},
			{ID: 2, IsFavorite: true, PostedAt: now.Add(-time.Hour)},
		},
	}

	stats, err := env.scraper.Run(context.Background(), scraper.RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaTimeline},
		Actions:   []scraper.Action{scraper.ActionLike},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Liked != 1 {
		t.Errorf("Liked = %d, want 1", stats.Liked)
	}

	calls := env.server.LikeCalls()
	if len(calls) != 1 {
		t.Fatalf("LikeCalls() = %v, want exactly one", calls)
	}
	if calls[0].Method != http.MethodPost || calls[0].PostID != 1 {
		t.Errorf("LikeCalls()[0] = %+v, want POST on post 1", calls[0])
	}
}

func TestEndToEndAuthCheck(t *testing.T) {
	env := newTestEnv(t, 100, "alice")

	user, err := env.client.CheckAuth(context.Background())
	if err != nil {
		t.Fatalf("CheckAuth() error = %v", err)
	}
	if user.Username != "tester" || !user.IsAuth {
		t.Errorf("CheckAuth() = %+v, want authed tester", user)
	}
}

func TestEndToEndModelLookupFailure(t *testing.T) {
	env := newTestEnv(t, 100, "alice")
	env.server.SetErrorResponse("/users/alice", http.StatusInternalServerError)

	// A failed model is logged and skipped, never a run-level error
	stats, err := env.scraper.Run(context.Background(), scraper.RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaTimeline},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Models != 0 || stats.Downloaded != 0 {
		t.Errorf("stats = %+v, want failed model skipped", stats)
	}
}

func TestEndToEndSubscriptionListing(t *testing.T) {
	env := newTestEnv(t, 100, "alice")

	subs, err := env.client.GetSubscriptions(context.Background(), 0, 50)
	if err != nil {
		t.Fatalf("GetSubscriptions() error = %v", err)
	}
	if len(subs.List) != 1 || subs.HasMore {
		t.Fatalf("GetSubscriptions() = %+v, want single final page", subs)
	}
	if subs.List[0].Username != "alice" || !subs.List[0].Active {
		t.Errorf("subscription = %+v, want active alice", subs.List[0])
	}
}
