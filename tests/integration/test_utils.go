package integration

import (
	"testing"
	"time"

	"subscraper/pkg/auth"
	"subscraper/pkg/config"
	"subscraper/pkg/events"
	"subscraper/pkg/logger"
	"subscraper/pkg/platform"
	"subscraper/pkg/ratelimit"
	"subscraper/pkg/scraper"
	"subscraper/pkg/storage"
)

// testRules returns signing rules with known constants so headers are
// reproducible across runs.
func testRules() *platform.DynamicRules {
	return &platform.DynamicRules{
		StaticParam:      "test_static_param",
		Start:            "1122",
		End:              "3344",
		ChecksumIndexes:  []int{0, 3, 7, 11, 19, 23, 31, 39},
		ChecksumConstant: -42,
		AppToken:         "token123",
	}
}

func testAccount() *auth.Account {
	return &auth.Account{
		Profile: "main_profile",
		Auth: auth.Auth{
			Sess:      "sess-value",
			AuthID:    "12345",
			AuthUID:   "67890",
			UserAgent: "TestAgent/1.0",
			XBC:       "xbc-value",
		},
		LastModified: time.Now(),
	}
}

// newTestClient builds a real API client signed with test rules and
// pointed at the mock server.
func newTestClient(t *testing.T, server *MockPlatformServer) *platform.Client {
	t.Helper()

	signer, err := platform.NewSigner(testRules(), logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}

	client := platform.NewClient(testAccount(), signer, 10*time.Second, logger.NewNopLogger())
	client.SetBaseURL(server.URL())
	return client
}

// testEnv is the full wiring under test: a real client against the
// mock server, driving the real orchestrator and cache.
type testEnv struct {
	server  *MockPlatformServer
	client  *platform.Client
	scraper *scraper.Scraper
	cfg     *config.Config
}

func newTestEnv(t *testing.T, modelID int64, modelUsername string) *testEnv {
	t.Helper()

	server := NewMockPlatformServer(modelID, modelUsername)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.FileOptions.SaveLocation = t.TempDir()
	cfg.PerformanceOptions.ThreadCount = 1
	cfg.PerformanceOptions.DownloadSems = 2
	// Checkpoints live under the test's data dir
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := storage.NewManager(cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("storage.NewManager() error = %v", err)
	}
	hub := events.NewHub(logger.NewNopLogger())
	t.Cleanup(hub.Close)

	client := newTestClient(t, server)
	s := scraper.New(client, cfg, store, hub, logger.NewNopLogger())
	s.SetLimiter(ratelimit.NewTokenBucket(10000, time.Second))
	s.SetLikeLimiter(ratelimit.NewSlidingWindow(10000, time.Second))

	return &testEnv{server: server, client: client, scraper: s, cfg: cfg}
}
