package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
   ███████╗██╗   ██╗██████╗ ███████╗ ██████╗██████╗  █████╗ ██████╗ ███████╗██████╗
   ██╔════╝██║   ██║██╔══██╗██╔════╝██╔════╝██╔══██╗██╔══██╗██╔══██╗██╔════╝██╔══██╗
   ███████╗██║   ██║██████╔╝███████╗██║     ██████╔╝███████║██████╔╝█████╗  ██████╔╝
   ╚════██║██║   ██║██╔══██╗╚════██║██║     ██╔══██╗██╔══██║██╔═══╝ ██╔══╝  ██╔══██╗
   ███████║╚██████╔╝██████╔╝███████║╚██████╗██║  ██║██║  ██║██║     ███████╗██║  ██║
   ╚══════╝ ╚═════╝ ╚═════╝ ╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚══════╝╚═╝  ╚═╝
`

// Plain terminal output shares its palette with the TUI theme defaults.
var (
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	yellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	magentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func Cyan(s string) string    { return cyanStyle.Render(s) }
func Yellow(s string) string  { return yellowStyle.Render(s) }
func Red(s string) string     { return redStyle.Render(s) }
func Green(s string) string   { return greenStyle.Render(s) }
func Magenta(s string) string { return magentaStyle.Render(s) }
func Dim(s string) string     { return dimStyle.Render(s) }

// PrintLogo prints the startup banner.
func PrintLogo() {
	fmt.Print(Cyan(logo))
}

// PrintError prints msg in red, appending the first arg when given.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Println(Red(msg))
}

// PrintSuccess prints msg in green.
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a label/value pair.
func PrintInfo(label, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints msg in yellow, appending the first arg when given.
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Println(Yellow(msg))
}

// PrintHighlight prints msg in magenta.
func PrintHighlight(msg string) {
	fmt.Println(Magenta(msg))
}
