package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a named color palette. Dark is the default; light swaps the
// palette for pale terminal backgrounds.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
}

var darkTheme = Theme{
	Name:      "dark",
	Primary:   lipgloss.Color("#00FFFF"),
	Secondary: lipgloss.Color("#FF00FF"),
	Success:   lipgloss.Color("#39FF14"),
	Warning:   lipgloss.Color("#FF6700"),
	Error:     lipgloss.Color("#FF0000"),
	Muted:     lipgloss.Color("#B0B0B0"),
	Text:      lipgloss.Color("#FFFFFF"),
}

var lightTheme = Theme{
	Name:      "light",
	Primary:   lipgloss.Color("#005F87"),
	Secondary: lipgloss.Color("#8700AF"),
	Success:   lipgloss.Color("#008700"),
	Warning:   lipgloss.Color("#AF5F00"),
	Error:     lipgloss.Color("#D70000"),
	Muted:     lipgloss.Color("#6C6C6C"),
	Text:      lipgloss.Color("#1C1C1C"),
}

// ThemeFor returns the palette for a ui_settings theme name. Unknown
// names get the dark palette.
func ThemeFor(name string) Theme {
	if name == "light" {
		return lightTheme
	}
	return darkTheme
}

// styles holds the lipgloss styles derived from a theme.
type styles struct {
	logo      lipgloss.Style
	panel     lipgloss.Style
	title     lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	success   lipgloss.Style
	errorText lipgloss.Style
	warning   lipgloss.Style
	muted     lipgloss.Style
	help      lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		logo: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(1, 0),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Secondary).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Foreground(theme.Secondary).
			Bold(true),
		label: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		value: lipgloss.NewStyle().
			Foreground(theme.Text),
		success: lipgloss.NewStyle().
			Foreground(theme.Success).
			Bold(true),
		errorText: lipgloss.NewStyle().
			Foreground(theme.Error).
			Bold(true),
		warning: lipgloss.NewStyle().
			Foreground(theme.Warning),
		muted: lipgloss.NewStyle().
			Foreground(theme.Muted),
		help: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Faint(true).
			Padding(1, 0, 0, 2),
	}
}
