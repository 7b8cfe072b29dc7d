package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `SUBSCRAPER`

// View renders the full screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.logo.Render(logo))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderAreas())
	b.WriteString("\n")
	b.WriteString(m.renderDownloads())
	b.WriteString("\n")
	b.WriteString(m.renderLogs())

	if m.countdownSeconds > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.warning.Render(
			fmt.Sprintf("Next run (#%d) in %s", m.daemonRun+1, formatSeconds(m.countdownSeconds))))
	}

	if m.showHelp {
		b.WriteString(m.styles.help.Render("\nq: quit • ?: toggle help"))
	} else {
		b.WriteString(m.styles.help.Render("\npress ? for help"))
	}

	return b.String()
}

func (m Model) renderStatus() string {
	state := m.styles.muted.Render("idle")
	switch {
	case m.running:
		state = m.spinner.View() + m.styles.value.Render(" scraping")
	case m.finished:
		state = m.styles.success.Render("✓ finished")
	}

	elapsed := time.Since(m.startTime).Round(time.Second)
	stats := fmt.Sprintf("%s %s   %s %s   %s %s   %s %s",
		m.styles.label.Render("scanned"), m.styles.value.Render(fmt.Sprintf("%d", m.scanned)),
		m.styles.label.Render("downloaded"), m.styles.value.Render(fmt.Sprintf("%d", m.downloaded)),
		m.styles.label.Render("failed"), m.renderFailed(),
		m.styles.label.Render("elapsed"), m.styles.value.Render(elapsed.String()),
	)

	return m.styles.panel.Render(lipgloss.JoinVertical(lipgloss.Left, state, stats))
}

func (m Model) renderFailed() string {
	if m.failed > 0 {
		return m.styles.errorText.Render(fmt.Sprintf("%d", m.failed))
	}
	return m.styles.value.Render("0")
}

func (m Model) renderAreas() string {
	if len(m.areas) == 0 {
		return m.styles.panel.Render(m.styles.muted.Render("no areas scanned yet"))
	}

	lines := []string{m.styles.title.Render("AREAS")}
	start := 0
	if len(m.areas) > 8 {
		start = len(m.areas) - 8
	}
	for _, st := range m.areas[start:] {
		mark := m.spinner.View()
		if st.Finished {
			mark = m.styles.success.Render("✓")
		}
		lines = append(lines, fmt.Sprintf("%s %s/%s %s",
			mark,
			m.styles.value.Render(st.Model),
			m.styles.label.Render(st.Area),
			m.styles.muted.Render(fmt.Sprintf("%d posts", st.Scanned))))
	}
	return m.styles.panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderDownloads() string {
	if len(m.downloads) == 0 {
		return m.styles.panel.Render(m.styles.muted.Render("no downloads yet"))
	}

	lines := []string{m.styles.title.Render("DOWNLOADS")}
	for _, d := range m.downloads {
		mark := m.styles.success.Render("✓")
		if !d.Success {
			mark = m.styles.errorText.Render("✗")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			mark,
			m.styles.value.Render(d.Model),
			m.styles.muted.Render(fmt.Sprintf("media %d", d.MediaID))))
	}
	return m.styles.panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderLogs() string {
	if len(m.logs) == 0 {
		return ""
	}

	shown := m.logs
	if len(shown) > 5 {
		shown = shown[len(shown)-5:]
	}

	lines := []string{m.styles.title.Render("LOG")}
	for _, l := range shown {
		level := m.styles.muted
		switch l.Level {
		case "ERROR":
			level = m.styles.errorText
		case "WARN":
			level = m.styles.warning
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			m.styles.muted.Render(l.Time.Format("15:04:05")),
			level.Render(l.Level),
			m.styles.value.Render(l.Message)))
	}
	return m.styles.panel.Render(strings.Join(lines, "\n"))
}

func formatSeconds(s int) string {
	d := time.Duration(s) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm%ds", s/60, s%60)
}
