package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"subscraper/pkg/events"
)

const maxLogLines = 50
const maxRecentDownloads = 10

// downloadLine is one entry in the recent downloads panel.
type downloadLine struct {
	Model   string
	MediaID int64
	Success bool
	Time    time.Time
}

// areaState tracks scan progress for one model/area pair.
type areaState struct {
	Model    string
	Area     string
	Scanned  int
	Finished bool
}

// logLine is a rendered entry in the log tail.
type logLine struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the bubbletea model for the scrape progress view. Events
// from the hub arrive as eventMsg values; there is no shared state
// with the scraper goroutines.
type Model struct {
	styles  styles
	spinner spinner.Model

	areas     []areaState
	downloads []downloadLine
	logs      []logLine

	scanned    int
	downloaded int
	failed     int

	countdownSeconds int
	daemonRun        int
	running          bool
	finished         bool

	startTime time.Time
	width     int
	height    int
	showHelp  bool
}

// NewModel builds the model for the given theme name.
func NewModel(themeName string) Model {
	theme := ThemeFor(themeName)
	st := newStyles(theme)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	return Model{
		styles:    st,
		spinner:   s,
		startTime: time.Now(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// applyEvent folds a hub event into the model state.
func (m *Model) applyEvent(evt events.Event) {
	switch evt.Type {
	case events.ScrapeStarted:
		m.running = true
		m.finished = false
		m.addLog("INFO", "Scrape started: "+evt.Message)

	case events.ScrapeFinished:
		m.running = false
		m.finished = true
		m.addLog("INFO", "Scrape finished")

	case events.AreaStarted:
		m.areas = append(m.areas, areaState{Model: evt.Model, Area: string(evt.Area)})

	case events.AreaProgress:
		if st := m.findArea(evt.Model, string(evt.Area)); st != nil {
			if evt.Scanned > st.Scanned {
				m.scanned += evt.Scanned - st.Scanned
				st.Scanned = evt.Scanned
			}
		}

	case events.AreaFinished:
		if st := m.findArea(evt.Model, string(evt.Area)); st != nil {
			st.Finished = true
		}

	case events.DownloadFinished:
		if evt.Success {
			m.downloaded++
		} else {
			m.failed++
			m.addLog("ERROR", fmt.Sprintf("Download failed: media %d", evt.MediaID))
		}
		m.downloads = append(m.downloads, downloadLine{
			Model:   evt.Model,
			MediaID: evt.MediaID,
			Success: evt.Success,
			Time:    evt.Time,
		})
		if len(m.downloads) > maxRecentDownloads {
			m.downloads = m.downloads[len(m.downloads)-maxRecentDownloads:]
		}

	case events.LikeResults:
		m.addLog("INFO", fmt.Sprintf("Like results for %d posts", len(evt.Likes)))

	case events.DaemonCountdown:
		m.countdownSeconds = evt.Seconds
		m.daemonRun = evt.Run

	case events.DaemonRun:
		m.countdownSeconds = 0
		m.daemonRun = evt.Run
		m.addLog("INFO", fmt.Sprintf("Daemon run #%d", evt.Run))

	case events.LogLine:
		m.addLog("INFO", evt.Message)
	}
}

func (m *Model) findArea(model, area string) *areaState {
	for i := range m.areas {
		if m.areas[i].Model == model && m.areas[i].Area == area {
			return &m.areas[i]
		}
	}
	return nil
}

func (m *Model) addLog(level, message string) {
	m.logs = append(m.logs, logLine{Time: time.Now(), Level: level, Message: message})
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}
