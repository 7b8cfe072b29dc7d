package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// FixtureMedia describes one media item served by the mock API.
type FixtureMedia struct {
	ID       int64
	Type     string
	CanView  bool
	Duration float64
}

// FixturePost describes one post served by the mock API. The zero value
// of the flags matches a free, unread, unliked post.
type FixturePost struct {
	ID         int64
	Text       string
	Price      float64
	IsOpened   bool
	IsFavorite bool
	PostedAt   time.Time
	Media      []FixtureMedia
}

// FixturePage is one cursored page of posts. Next is the tail marker
// handed back to the client; a page keyed by that marker serves the
// following request.
type FixturePage struct {
	Posts []FixturePost
	Next  string
}

// FixtureStory describes one story served by the stories endpoint.
type FixtureStory struct {
	ID       int64
	PostedAt time.Time
	Media    []FixtureMedia
}

// LikeCall records one hit on the favorites endpoint.
type LikeCall struct {
	Method string
	PostID int64
}

// MockPlatformServer simulates the platform API and its media CDN.
// Fixtures are set before the test run; error responses and request
// counters support failure-path tests.
type MockPlatformServer struct {
	server *httptest.Server

	// ModelID and ModelUsername identify the single model the mock
	// serves. Lookups by any username resolve to this model.
	ModelID       int64
	ModelUsername string

	// TimelinePages maps a beforePublishTime cursor to the page served
	// for it. The empty cursor serves the first page.
	TimelinePages map[string]FixturePage
	Messages      []FixturePost
	Stories       []FixtureStory
	Purchased     []FixturePost

	requestCount int32

	mu             sync.Mutex
	likeCalls      []LikeCall
	errorResponses map[string]int
}

// NewMockPlatformServer starts a mock API server for one model.
func NewMockPlatformServer(modelID int64, modelUsername string) *MockPlatformServer {
	m := &MockPlatformServer{
		ModelID:        modelID,
		ModelUsername:  modelUsername,
		TimelinePages:  make(map[string]FixturePage),
		errorResponses: make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the server's base URL for Client.SetBaseURL.
func (m *MockPlatformServer) URL() string {
	return m.server.URL
}

// Close shuts the server down.
func (m *MockPlatformServer) Close() {
	m.server.Close()
}

// RequestCount returns the total number of requests handled.
func (m *MockPlatformServer) RequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// SetErrorResponse makes every path containing pattern fail with the
// given status code.
func (m *MockPlatformServer) SetErrorResponse(pattern string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorResponses[pattern] = code
}

// LikeCalls returns the favorites endpoint hits recorded so far.
func (m *MockPlatformServer) LikeCalls() []LikeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]LikeCall, len(m.likeCalls))
	copy(calls, m.likeCalls)
	return calls
}

// MediaURL returns the CDN URL the mock serves for a media id.
func (m *MockPlatformServer) MediaURL(mediaID int64) string {
	return fmt.Sprintf("%s/media/%d.jpg", m.server.URL, mediaID)
}

// MediaBody returns the deterministic bytes served for a media id.
func MediaBody(mediaID int64) []byte {
	return []byte(fmt.Sprintf("media-bytes-%d", mediaID))
}

func (m *MockPlatformServer) handle(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if code := m.errorFor(r.URL.Path); code != 0 {
		http.Error(w, http.StatusText(code), code)
		return
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/media/"):
		m.handleMedia(w, r)
	case path == "/api2/v2/users/me":
		m.writeJSON(w, m.userJSON(999, "tester", true))
	case path == "/api2/v2/subscriptions/subscribes":
		m.writeJSON(w, map[string]interface{}{
			"list": []interface{}{
				m.subscriptionJSON(),
			},
			"hasMore": false,
		})
	case path == "/api2/v2/posts/paid":
		m.writeJSON(w, m.pageJSON(FixturePage{Posts: m.Purchased}, "post"))
	case strings.HasPrefix(path, "/api2/v2/posts/") && strings.Contains(path, "/favorites/"):
		m.handleFavorite(w, r)
	case strings.HasPrefix(path, "/api2/v2/chats/") && strings.HasSuffix(path, "/messages"):
		m.handleMessages(w, r)
	case strings.HasPrefix(path, "/api2/v2/users/"):
		m.handleUsers(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockPlatformServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api2/v2/users/")
	switch {
	case !strings.Contains(rest, "/"):
		m.writeJSON(w, m.userJSON(m.ModelID, m.ModelUsername, false))
	case strings.HasSuffix(rest, "/stories/highlights"):
		m.writeJSON(w, map[string]interface{}{"list": []interface{}{}, "hasMore": false})
	case strings.HasSuffix(rest, "/stories"):
		m.writeJSON(w, m.storiesJSON())
	case strings.HasSuffix(rest, "/labels"):
		m.writeJSON(w, map[string]interface{}{"list": []interface{}{}, "hasMore": false})
	case strings.Contains(rest, "/posts"):
		m.handlePosts(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockPlatformServer) handlePosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Pinned, labeled, archived and streams views stay empty; the
	// timeline view serves the cursored fixture pages.
	if q.Get("pinned") == "1" || q.Get("label") != "" ||
		strings.Contains(r.URL.Path, "/archived") || strings.Contains(r.URL.Path, "/streams") {
		m.writeJSON(w, m.pageJSON(FixturePage{}, "post"))
		return
	}

	cursor := q.Get("beforePublishTime")
	m.writeJSON(w, m.pageJSON(m.TimelinePages[cursor], "post"))
}

func (m *MockPlatformServer) handleMessages(w http.ResponseWriter, r *http.Request) {
	// Only the newest page carries fixtures; id-cursored requests for
	// older pages come back empty.
	page := FixturePage{}
	if r.URL.Query().Get("id") == "" {
		page.Posts = m.Messages
	}
	m.writeJSON(w, m.pageJSON(page, "message"))
}

func (m *MockPlatformServer) handleFavorite(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api2/v2/posts/"), "/")
	var postID int64
	fmt.Sscanf(parts[0], "%d", &postID)

	m.mu.Lock()
	m.likeCalls = append(m.likeCalls, LikeCall{Method: r.Method, PostID: postID})
	m.mu.Unlock()

	m.writeJSON(w, map[string]interface{}{"isFavorite": r.Method == http.MethodPost})
}

func (m *MockPlatformServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/media/"), ".jpg")
	var mediaID int64
	fmt.Sscanf(name, "%d", &mediaID)

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(MediaBody(mediaID))
}

func (m *MockPlatformServer) errorFor(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pattern, code := range m.errorResponses {
		if strings.Contains(path, pattern) {
			return code
		}
	}
	return 0
}

func (m *MockPlatformServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// userJSON renders a user the way the API does.
func (m *MockPlatformServer) userJSON(id int64, username string, isAuth bool) map[string]interface{} {
	u := map[string]interface{}{
		"id":       id,
		"username": username,
		"name":     username,
		"avatar":   fmt.Sprintf("%s/media/avatar_%d.jpg", m.server.URL, id),
	}
	if isAuth {
		u["isAuth"] = true
	}
	return u
}

func (m *MockPlatformServer) subscriptionJSON() map[string]interface{} {
	sub := m.userJSON(m.ModelID, m.ModelUsername, false)
	sub["subscribedIsActive"] = true
	sub["subscribePrice"] = 0
	return sub
}

func (m *MockPlatformServer) mediaJSON(media FixtureMedia) map[string]interface{} {
	mediaType := media.Type
	if mediaType == "" {
		mediaType = "photo"
	}
	item := map[string]interface{}{
		"id":      media.ID,
		"type":    mediaType,
		"canView": media.CanView,
		"source":  map[string]interface{}{"source": ""},
	}
	if media.Duration > 0 {
		item["duration"] = media.Duration
	}
	// Locked media comes down the wire without a source URL
	if media.CanView {
		item["source"] = map[string]interface{}{
			"source": m.MediaURL(media.ID),
			"width":  1080,
			"height": 1920,
		}
	}
	return item
}

func (m *MockPlatformServer) postJSON(post FixturePost, responseType string) map[string]interface{} {
	mediaList := make([]interface{}, 0, len(post.Media))
	for _, media := range post.Media {
		mediaList = append(mediaList, m.mediaJSON(media))
	}
	return map[string]interface{}{
		"id":           post.ID,
		"text":         post.Text,
		"price":        post.Price,
		"responseType": responseType,
		"isOpened":     post.IsOpened,
		"isFavorite":   post.IsFavorite,
		"postedAt":     post.PostedAt.UTC().Format(time.RFC3339),
		"media":        mediaList,
		"fromUser":     m.userJSON(m.ModelID, m.ModelUsername, false),
	}
}

func (m *MockPlatformServer) pageJSON(page FixturePage, responseType string) map[string]interface{} {
	list := make([]interface{}, 0, len(page.Posts))
	for _, post := range page.Posts {
		list = append(list, m.postJSON(post, responseType))
	}
	body := map[string]interface{}{
		"list":    list,
		"hasMore": page.Next != "",
	}
	if page.Next != "" {
		body["tailMarker"] = page.Next
	}
	return body
}

func (m *MockPlatformServer) storiesJSON() []interface{} {
	stories := make([]interface{}, 0, len(m.Stories))
	for _, story := range m.Stories {
		mediaList := make([]interface{}, 0, len(story.Media))
		for _, media := range story.Media {
			mediaList = append(mediaList, m.mediaJSON(media))
		}
		stories = append(stories, map[string]interface{}{
			"id":        story.ID,
			"createdAt": story.PostedAt.UTC().Format(time.RFC3339),
			"media":     mediaList,
		})
	}
	return stories
}
