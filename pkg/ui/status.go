package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"subscraper/pkg/events"
)

// StatusPrinter renders scrape progress as plain terminal lines. It is
// the non-TUI output path, driven by the same event hub as the TUI.
type StatusPrinter struct {
	mu         sync.Mutex
	startTime  time.Time
	scanned    int
	downloaded int
	failed     int
	area       string
	model      string
	done       chan struct{}
}

// NewStatusPrinter subscribes to the hub and starts printing. Call the
// returned stop function after the run finishes to release the
// subscription and print the summary.
func NewStatusPrinter(hub *events.Hub) (printer *StatusPrinter, stop func()) {
	p := &StatusPrinter{
		startTime: time.Now(),
		done:      make(chan struct{}),
	}

	ch, cancel := hub.Subscribe()
	go p.consume(ch)

	return p, func() {
		cancel()
		<-p.done
		p.printSummary()
	}
}

func (p *StatusPrinter) consume(ch <-chan events.Event) {
	defer close(p.done)
	for evt := range ch {
		p.handle(evt)
	}
}

func (p *StatusPrinter) handle(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch evt.Type {
	case events.AreaStarted:
		p.model = evt.Model
		p.area = string(evt.Area)
		fmt.Printf("\n%s %s / %s\n", Magenta("[SCANNING]"), Cyan(evt.Model), Yellow(string(evt.Area)))

	case events.AreaProgress:
		p.scanned = max(p.scanned, evt.Scanned)
		p.printLine()

	case events.DownloadFinished:
		if evt.Success {
			p.downloaded++
		} else {
			p.failed++
		}
		p.printLine()

	case events.DaemonCountdown:
		fmt.Printf("\r%s next run in %ds   ", Dim("[WAITING]"), evt.Seconds)

	case events.DaemonRun:
		fmt.Printf("\n%s run #%d\n", Magenta("[DAEMON]"), evt.Run)

	case events.LikeResults:
		fmt.Printf("\n%s %d posts updated\n", Green("[LIKES]"), len(evt.Likes))
	}
}

func (p *StatusPrinter) printLine() {
	line := fmt.Sprintf("\r%s scanned %d • downloaded %d", Green("[PROGRESS]"), p.scanned, p.downloaded)
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d failed", p.failed)))
	}
	fmt.Printf("\r%s%s", strings.Repeat(" ", 100)+"\r", line)
}

func (p *StatusPrinter) printSummary() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	fmt.Printf("\n\n%s %d posts scanned, %d files downloaded in %s\n",
		Green("✓"), p.scanned, p.downloaded, formatDuration(elapsed))
	if p.failed > 0 {
		fmt.Printf("  %s %d downloads failed\n", Dim("•"), p.failed)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
