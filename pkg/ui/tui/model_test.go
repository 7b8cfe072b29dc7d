package tui

import (
	"testing"
	"time"

	"subscraper/pkg/events"
	"subscraper/pkg/models"
)

func TestApplyEventAreaProgress(t *testing.T) {
	m := NewModel("dark")

	m.applyEvent(events.Event{Type: events.AreaStarted, Model: "alice", Area: models.AreaTimeline})
	m.applyEvent(events.Event{Type: events.AreaProgress, Model: "alice", Area: models.AreaTimeline, Scanned: 3})
	m.applyEvent(events.Event{Type: events.AreaProgress, Model: "alice", Area: models.AreaTimeline, Scanned: 7})

	if m.scanned != 7 {
		t.Errorf("scanned = %d, want 7", m.scanned)
	}
	st := m.findArea("alice", "Timeline")
	if st == nil || st.Scanned != 7 {
		t.Fatalf("area state = %+v", st)
	}

	m.applyEvent(events.Event{Type: events.AreaFinished, Model: "alice", Area: models.AreaTimeline})
	if !m.findArea("alice", "Timeline").Finished {
		t.Error("area not marked finished")
	}
}

func TestApplyEventDownloadCounters(t *testing.T) {
	m := NewModel("dark")

	m.applyEvent(events.Event{Type: events.DownloadFinished, Model: "alice", MediaID: 1, Success: true, Time: time.Now()})
	m.applyEvent(events.Event{Type: events.DownloadFinished, Model: "alice", MediaID: 2, Success: false, Time: time.Now()})

	if m.downloaded != 1 || m.failed != 1 {
		t.Errorf("downloaded = %d, failed = %d", m.downloaded, m.failed)
	}
	if len(m.downloads) != 2 {
		t.Errorf("download list length = %d", len(m.downloads))
	}
}

func TestRecentDownloadsBounded(t *testing.T) {
	m := NewModel("dark")

	for i := 0; i < maxRecentDownloads*2; i++ {
		m.applyEvent(events.Event{Type: events.DownloadFinished, MediaID: int64(i), Success: true})
	}
	if len(m.downloads) != maxRecentDownloads {
		t.Errorf("download list length = %d, want %d", len(m.downloads), maxRecentDownloads)
	}
}

func TestApplyEventDaemonCountdown(t *testing.T) {
	m := NewModel("dark")

	m.applyEvent(events.Event{Type: events.DaemonCountdown, Seconds: 30, Run: 2})
	if m.countdownSeconds != 30 || m.daemonRun != 2 {
		t.Errorf("countdown = %d run = %d", m.countdownSeconds, m.daemonRun)
	}

	m.applyEvent(events.Event{Type: events.DaemonRun, Run: 3})
	if m.countdownSeconds != 0 || m.daemonRun != 3 {
		t.Errorf("after run event: countdown = %d run = %d", m.countdownSeconds, m.daemonRun)
	}
}

func TestThemeFor(t *testing.T) {
	if ThemeFor("light").Name != "light" {
		t.Error("light theme not selected")
	}
	if ThemeFor("dark").Name != "dark" {
		t.Error("dark theme not selected")
	}
	if ThemeFor("unknown").Name != "dark" {
		t.Error("unknown theme should fall back to dark")
	}
}

func TestViewRendersWithoutState(t *testing.T) {
	m := NewModel("dark")
	if out := m.View(); out == "" {
		t.Error("empty view")
	}

	m.applyEvent(events.Event{Type: events.ScrapeStarted, Message: "1 models"})
	m.applyEvent(events.Event{Type: events.AreaStarted, Model: "alice", Area: models.AreaStories})
	if out := m.View(); out == "" {
		t.Error("empty view after events")
	}
}
