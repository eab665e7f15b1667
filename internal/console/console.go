// Package console renders the styled operator output: run header, module
// banners, per-action status lines, and the closing summary.
package console

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255")).
		Padding(0, 1)

	moduleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	errStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))
)

// Header prints the run banner with version and telemetry destination.
func Header(version, testID, outputRoot string) {
	fmt.Println(titleStyle.Render("magnet " + version))
	fmt.Println(headerStyle.Render("test id: " + testID))
	fmt.Println(dimStyle.Render("telemetry: " + outputRoot))
	fmt.Println()
}

// ModuleStart prints the banner preceding one capability run.
func ModuleStart(name string) {
	fmt.Println(moduleStyle.Render("▶ " + name))
}

// ActionRunning announces the effect a capability is about to perform.
func ActionRunning(msg string) {
	fmt.Println(dimStyle.Render("  … " + msg))
}

// ActionOK marks the current capability as finished.
func ActionOK() {
	fmt.Println(okStyle.Render("  ✔ done"))
}

// Info prints a plain informational line.
func Info(msg string) {
	fmt.Println("    " + msg)
}

// Infof prints a formatted informational line.
func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}

// Warnf prints a warning line. Telemetry failures surface here and nowhere
// else.
func Warnf(format string, args ...any) {
	fmt.Println(warnStyle.Render("  ⚠ " + fmt.Sprintf(format, args...)))
}

// Errorf prints an error line.
func Errorf(format string, args ...any) {
	fmt.Println(errStyle.Render("  ✖ " + fmt.Sprintf(format, args...)))
}

// Summary prints the closing footer once the runner has finished.
func Summary(modules int, elapsed time.Duration) {
	fmt.Println()
	fmt.Println(headerStyle.Render(fmt.Sprintf(
		"%s modules · finished in %s",
		humanize.Comma(int64(modules)),
		elapsed.Round(time.Millisecond),
	)))
}
