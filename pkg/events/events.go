// Package events carries progress and lifecycle notifications from the
// scraper pipeline to the UI and other listeners. Emitters never block:
// a slow subscriber drops events rather than stalling downloads.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"subscraper/pkg/logger"
	"subscraper/pkg/models"
)

// Type tags an event.
type Type string

const (
	ScrapeStarted    Type = "scrape_started"
	ScrapeFinished   Type = "scrape_finished"
	AreaStarted      Type = "area_started"
	AreaProgress     Type = "area_progress"
	AreaFinished     Type = "area_finished"
	DownloadStarted  Type = "download_started"
	DownloadFinished Type = "download_finished"
	CellUpdate       Type = "cell_update"
	LikeResults      Type = "like_results"
	DaemonCountdown  Type = "daemon_countdown"
	DaemonRun        Type = "daemon_run"
	LogLine          Type = "log_line"
)

// Event is a single notification. Fields beyond Type are filled
// per-kind; unused ones stay zero.
type Event struct {
	Type    Type
	Time    time.Time
	Model   string
	Area    models.Area
	MediaID int64
	PostID  int64
	Scanned int
	Total   int
	Success bool
	Message string
	Seconds int
	Run     int
	Likes   map[int64]string
}

const (
	subscriberBuffer = 256
	dropLogInterval  = 5 * time.Second
)

// Hub fans events out to subscribers. Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	closed  bool
	logger  logger.Logger
	dropped atomic.Int64
	lastLog atomic.Int64
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]chan Event),
		logger: log,
	}
}

// Subscribe registers a listener. The returned cancel func must be
// called to release the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Emit delivers the event to every subscriber without blocking. Full
// subscriber buffers drop the event; drops are logged at a capped rate.
func (h *Hub) Emit(evt Event) {
	if h == nil {
		return
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.noteDrop()
		}
	}
}

func (h *Hub) noteDrop() {
	h.dropped.Add(1)
	now := time.Now().UnixNano()
	last := h.lastLog.Load()
	if now-last < int64(dropLogInterval) || !h.lastLog.CompareAndSwap(last, now) {
		return
	}
	count := h.dropped.Swap(0)
	h.logger.WarnWithFields("Dropped events on slow subscriber", map[string]interface{}{
		"dropped": count,
	})
}

// Close stops delivery and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Convenience emitters used by the pipeline.

func (h *Hub) Progress(model string, area models.Area, scanned, total int) {
	h.Emit(Event{Type: AreaProgress, Model: model, Area: area, Scanned: scanned, Total: total})
}

func (h *Hub) DownloadDone(model string, mediaID int64, ok bool) {
	h.Emit(Event{Type: DownloadFinished, Model: model, MediaID: mediaID, Success: ok})
}

func (h *Hub) Countdown(seconds, run int) {
	h.Emit(Event{Type: DaemonCountdown, Seconds: seconds, Run: run})
}
