// Package render formats triage data for the terminal
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	unreadStyle = lipgloss.NewStyle().Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// Success prints a confirmation line
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, okStyle.Render("✔ "+fmt.Sprintf(format, args...)))
}

// Failure prints an error line
func Failure(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, errStyle.Render("✖ "+fmt.Sprintf(format, args...)))
}

// Hint prints a muted suggestion
func Hint(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

func panel(w io.Writer, lines []string) {
	fmt.Fprintln(w, panelStyle.Render(strings.Join(lines, "\n")))
}

// priorityStyle colors a 0..100 score
func priorityStyle(score float64) lipgloss.Style {
	switch {
	case score >= 75:
		return errStyle
	case score >= 50:
		return warnStyle
	default:
		return okStyle
	}
}

// cell pads or truncates s to width display columns
func cell(s string, width int) string {
	if lipgloss.Width(s) > width {
		r := []rune(s)
		for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
			r = r[:len(r)-1]
		}
		s = string(r) + "…"
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func row(cols ...string) string {
	return strings.Join(cols, "  ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
