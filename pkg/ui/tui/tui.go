// Package tui renders scrape progress with bubbletea, fed entirely by
// the event hub.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"subscraper/pkg/events"
)

// TUI owns the bubbletea program and its hub subscription.
type TUI struct {
	program *tea.Program
	cancel  func()
}

// NewTUI subscribes to the hub and builds the program. themeName comes
// from ui_settings.json.
func NewTUI(hub *events.Hub, themeName string) *TUI {
	model := NewModel(themeName)
	program := tea.NewProgram(model, tea.WithAltScreen())

	ch, cancel := hub.Subscribe()
	t := &TUI{program: program, cancel: cancel}

	go func() {
		for evt := range ch {
			program.Send(eventMsg(evt))
		}
		program.Send(doneMsg{})
	}()

	return t
}

// Start blocks until the user quits or Stop is called.
func (t *TUI) Start() error {
	_, err := t.program.Run()
	t.cancel()
	return err
}

// Stop ends the program from another goroutine.
func (t *TUI) Stop() {
	t.cancel()
	t.program.Quit()
}
