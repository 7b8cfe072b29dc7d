package scraper

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"subscraper/pkg/config"
	"subscraper/pkg/db"
	"subscraper/pkg/events"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
	"subscraper/pkg/platform"
	"subscraper/pkg/ratelimit"
	"subscraper/pkg/storage"
)

// mockClient serves canned pages and records like/unlike calls.
type mockClient struct {
	mu       sync.Mutex
	user     platform.User
	timeline []platform.PostsResponse
	pinned   []platform.PostsResponse
	messages []platform.MessagesResponse
	stories  []platform.Story
	liked    []int64
	unliked  []int64

	timelineCalls int
}

func (m *mockClient) GetUser(ctx context.Context, username string) (*platform.User, error) {
	u := m.user
	return &u, nil
}

func (m *mockClient) GetSubscriptions(ctx context.Context, offset, limit int) (*platform.SubscriptionsResponse, error) {
	return &platform.SubscriptionsResponse{}, nil
}

func (m *mockClient) GetTimeline(ctx context.Context, userID int64, cursor string, limit int) (*platform.PostsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.timelineCalls
	m.timelineCalls++
	if idx >= len(m.timeline) {
		return &platform.PostsResponse{}, nil
	}
	page := m.timeline[idx]
	return &page, nil
}

func (m *mockClient) GetPinned(ctx context.Context, userID int64, cursor string, limit int) (*platform.PostsResponse, error) {
	if len(m.pinned) == 0 {
		return &platform.PostsResponse{}, nil
	}
	page := m.pinned[0]
	return &page, nil
}

func (m *mockClient) GetArchived(ctx context.Context, userID int64, cursor string, limit int) (*platform.PostsResponse, error) {
	return &platform.PostsResponse{}, nil
}

func (m *mockClient) GetStreams(ctx context.Context, userID int64, cursor string, limit int) (*platform.PostsResponse, error) {
	return &platform.PostsResponse{}, nil
}

func (m *mockClient) GetLabels(ctx context.Context, userID int64, offset, limit int) (*platform.LabelsResponse, error) {
	return &platform.LabelsResponse{}, nil
}

func (m *mockClient) GetLabelPosts(ctx context.Context, userID, labelID int64, cursor string, limit int) (*platform.PostsResponse, error) {
	return &platform.PostsResponse{}, nil
}

func (m *mockClient) GetStories(ctx context.Context, userID int64) ([]platform.Story, error) {
	return m.stories, nil
}

func (m *mockClient) GetHighlights(ctx context.Context, userID int64, offset, limit int) ([]platform.Highlight, error) {
	return nil, nil
}

func (m *mockClient) GetHighlight(ctx context.Context, highlightID int64) (*platform.Highlight, error) {
	return &platform.Highlight{}, nil
}

func (m *mockClient) GetMessages(ctx context.Context, chatID, lastID int64, limit int) (*platform.MessagesResponse, error) {
	if len(m.messages) == 0 || lastID != 0 {
		return &platform.MessagesResponse{}, nil
	}
	page := m.messages[0]
	return &page, nil
}

func (m *mockClient) GetPurchased(ctx context.Context, offset, limit int) (*platform.PostsResponse, error) {
	return &platform.PostsResponse{}, nil
}

func (m *mockClient) LikePost(ctx context.Context, postID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liked = append(m.liked, postID)
	return nil
}

func (m *mockClient) UnlikePost(ctx context.Context, postID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unliked = append(m.unliked, postID)
	return nil
}

func (m *mockClient) DownloadMedia(ctx context.Context, url string, w io.Writer) (int64, error) {
	n, err := w.Write([]byte("media-bytes"))
	return int64(n), err
}

func viewablePost(id int64, mediaID int64, postedAt time.Time) platform.Post {
	return platform.Post{
		ID:           id,
		ResponseType: "post",
		PostedAt:     postedAt,
		Media: []platform.MediaItem{{
			ID:      mediaID,
			Type:    "photo",
			CanView: true,
			Source:  platform.MediaSource{Source: fmt.Sprintf("https://cdn/media_%d.jpg", mediaID)},
		}},
	}
}

func testScraper(t *testing.T, client Client) (*Scraper, *config.Config) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.FileOptions.SaveLocation = t.TempDir()
	cfg.PerformanceOptions.ThreadCount = 1
	cfg.PerformanceOptions.DownloadSems = 2
	// Checkpoints live under the test's data dir
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := storage.NewManager(cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	hub := events.NewHub(logger.NewNopLogger())
	t.Cleanup(hub.Close)

	s := New(client, cfg, store, hub, logger.NewNopLogger())
	s.SetLimiter(ratelimit.NewTokenBucket(10000, time.Second))
	s.SetLikeLimiter(ratelimit.NewSlidingWindow(10000, time.Second))
	return s, cfg
}

func TestRunDownloadsTimeline(t *testing.T) {
	now := time.Now()
	client := &mockClient{
		user: platform.User{ID: 100, Username: "alice"},
		timeline: []platform.PostsResponse{
			{
				List:       []platform.Post{viewablePost(1, 11, now), viewablePost(2, 22, now.Add(-time.Hour))},
				HasMore:    true,
				TailMarker: "cursor-1",
			},
			{
				List: []platform.Post{viewablePost(3, 33, now.Add(-2 * time.Hour))},
			},
		},
	}

	s, cfg := testScraper(t, client)

	stats, err := s.Run(context.Background(), RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaTimeline},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Models != 1 || stats.Scanned != 3 {
		t.Errorf("stats = %+v, want 1 model 3 scanned", stats)
	}
	if stats.Downloaded != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 3 downloads", stats)
	}

	// The cache database records the downloads
	store, err := db.Open(db.ModelDBPath(cfg.FileOptions.SaveLocation, "alice"), logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ids, err := store.DownloadedMediaIDs()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []int64{11, 22, 33} {
		if !ids[want] {
			t.Errorf("media %d not marked downloaded", want)
		}
	}

	// Completed scan recorded for incremental rescans
	last, err := store.LastScan(100, models.AreaTimeline)
	if err != nil || last.IsZero() {
		t.Errorf("LastScan = %v, %v, want non-zero", last, err)
	}
}

func TestRunSkipsLockedMedia(t *testing.T) {
	now := time.Now()
	locked := platform.Post{
		ID:           5,
		ResponseType: "post",
		Price:        20,
		PostedAt:     now,
		Media: []platform.MediaItem{{
			ID:      55,
			Type:    "video",
			CanView: false,
		}},
	}
	client := &mockClient{
		user:     platform.User{ID: 100, Username: "alice"},
		timeline: []platform.PostsResponse{{List: []platform.Post{locked}}},
	}

	s, cfg := testScraper(t, client)
	stats, err := s.Run(context.Background(), RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaTimeline},
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Queued != 0 || stats.Downloaded != 0 {
		t.Errorf("stats = %+v, want nothing queued for locked media", stats)
	}

	// Locked media still lands in the cache for the table view
	store, err := db.Open(db.ModelDBPath(cfg.FileOptions.SaveLocation, "alice"), logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rows, err := store.MediaRows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Unlocked {
		t.Errorf("rows = %+v, want one locked row", rows)
	}
}

func TestRunMetadataOnly(t *testing.T) {
	client := &mockClient{
		user:     platform.User{ID: 100, Username: "alice"},
		timeline: []platform.PostsResponse{{List: []platform.Post{viewablePost(1, 11, time.Now())}}},
	}

	s, cfg := testScraper(t, client)
	stats, err := s.Run(context.Background(), RunOptions{
		Usernames:    []string{"alice"},
		Areas:        []models.Area{models.AreaTimeline},
		MetadataOnly: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Scanned != 1 || stats.Queued != 0 || stats.Downloaded != 0 {
		t.Errorf("stats = %+v, want one scanned and nothing queued", stats)
	}

	// The cache still records the viewable media item
	store, err := db.Open(db.ModelDBPath(cfg.FileOptions.SaveLocation, "alice"), logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rows, err := store.MediaRows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || !rows[0].Unlocked || rows[0].Downloaded {
		t.Errorf("rows = %+v, want one unlocked undownloaded row", rows)
	}
}

func TestRunIncrementalSkipsOldPosts(t *testing.T) {
	now := time.Now()
	client := &mockClient{
		user: platform.User{ID: 100, Username: "alice"},
		timeline: []platform.PostsResponse{
			{List: []platform.Post{viewablePost(1, 11, now.Add(-time.Hour))}},
			// Second run returns the same old post plus a new one
			{List: []platform.Post{viewablePost(2, 22, now.Add(time.Hour)), viewablePost(1, 11, now.Add(-time.Hour))}},
		},
	}

	s, _ := testScraper(t, client)
	opts := RunOptions{Usernames: []string{"alice"}, Areas: []models.Area{models.AreaTimeline}}

	if _, err := s.Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Scanned != 1 {
		t.Errorf("second run scanned %d posts, want 1 (only the new one)", stats.Scanned)
	}
}

func TestRunCacheDisabledRedownloads(t *testing.T) {
	now := time.Now()
	post := viewablePost(1, 11, now.Add(-time.Hour))
	client := &mockClient{
		user: platform.User{ID: 100, Username: "alice"},
		timeline: []platform.PostsResponse{
			{List: []platform.Post{post}},
			{List: []platform.Post{post}},
		},
	}

	s, cfg := testScraper(t, client)
	cfg.AdvancedOptions.CacheMode = "disabled"
	opts := RunOptions{Usernames: []string{"alice"}, Areas: []models.Area{models.AreaTimeline}}

	if _, err := s.Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	// With the cache disabled the watermark and dedup set are ignored
	stats, err := s.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Scanned != 1 || stats.Downloaded != 1 {
		t.Errorf("second run stats = %+v, want the same post re-downloaded", stats)
	}
}

func TestRunStories(t *testing.T) {
	client := &mockClient{
		user: platform.User{ID: 100, Username: "alice"},
		stories: []platform.Story{{
			ID:       900,
			PostedAt: time.Now(),
			Media: []platform.MediaItem{{
				ID: 901, Type: "photo", CanView: true,
				Source: platform.MediaSource{Source: "https://cdn/story.jpg"},
			}},
		}},
	}

	s, _ := testScraper(t, client)
	stats, err := s.Run(context.Background(), RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaStories},
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Scanned != 1 || stats.Downloaded != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestLikeRun(t *testing.T) {
	now := time.Now()
	favorite := viewablePost(2, 22, now)
	favorite.IsFavorite = true
	client := &mockClient{
		user: platform.User{ID: 100, Username: "alice"},
		timeline: []platform.PostsResponse{
			{List: []platform.Post{viewablePost(1, 11, now), favorite}},
		},
	}

	s, _ := testScraper(t, client)
	stats, err := s.Run(context.Background(), RunOptions{
		Usernames: []string{"alice"},
		Areas:     []models.Area{models.AreaTimeline},
		Actions:   []Action{ActionLike},
	})
	if err != nil {
		t.Fatal(err)
	}

	if stats.Liked != 1 {
		t.Errorf("Liked = %d, want 1", stats.Liked)
	}
	if len(client.liked) != 1 || client.liked[0] != 1 {
		t.Errorf("liked posts = %v, want [1]", client.liked)
	}
	if len(client.unliked) != 0 {
		t.Errorf("unliked posts = %v, want none", client.unliked)
	}
}

func TestRunNoModels(t *testing.T) {
	s, _ := testScraper(t, &mockClient{})
	if _, err := s.Run(context.Background(), RunOptions{}); err == nil {
		t.Error("expected error for empty model selection")
	}
}

func TestLoadTableRows(t *testing.T) {
	store, err := db.OpenMemory(logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	posted := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpsertPost("message", db.PostRecord{PostID: 1, Text: "ppv", Price: 10, PostedAt: posted}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertMedia(db.MediaRecord{MediaID: 2, PostID: 1, APIType: "message", MediaType: "videos", Duration: 42, Unlocked: true, PostedAt: posted}); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadTableRows(store, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	r := rows[0]
	if r.Unlocked != models.UnlockIncluded {
		t.Errorf("Unlocked = %v, want Included for a viewable priced message", r.Unlocked)
	}
	if r.Price != 10 || r.Text != "ppv" {
		t.Errorf("joined fields = %v %q", r.Price, r.Text)
	}
	if r.Length != 42*time.Second {
		t.Errorf("Length = %v", r.Length)
	}
}
