package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// Styles groups the lipgloss styles used by the composer screen.
type Styles struct {
	Focused   lipgloss.Style
	Unfocused lipgloss.Style
	Title     lipgloss.Style
	Key       lipgloss.Style
	Desc      lipgloss.Style
	Sep       lipgloss.Style
	Selected  lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Failure   lipgloss.Style
	Bar       lipgloss.Style
}

// DefaultStyles returns default styling.
func DefaultStyles() Styles {
	return Styles{
		Focused: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")),
		Unfocused: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")),
		Key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		Desc:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Sep:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Selected: lipgloss.NewStyle().Reverse(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Failure:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Bar:      lipgloss.NewStyle().Background(lipgloss.Color("235")).Padding(0, 1),
	}
}

// RenderBorder renders content in a rounded box whose colour follows focus.
func (s Styles) RenderBorder(content string, width, height int, focused bool) string {
	style := s.Unfocused
	if focused {
		style = s.Focused
	}
	if width > 2 {
		style = style.Width(width - 2)
	}
	if height > 2 {
		style = style.Height(height - 2)
	}
	return style.Render(content)
}

// StatusStyle picks a colour for an HTTP status code.
func (s Styles) StatusStyle(code int) lipgloss.Style {
	switch {
	case code >= 200 && code < 300:
		return s.Success
	case code >= 300 && code < 400:
		return s.Warning
	default:
		return s.Failure
	}
}

// Truncate truncates a string to fit within a width of terminal cells.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// PadRight pads a string to a given width of terminal cells.
func PadRight(s string, width int) string {
	if runewidth.StringWidth(s) >= width {
		return Truncate(s, width)
	}
	return runewidth.FillRight(s, width)
}

// padStyled pads already-styled text, measuring without escape sequences.
func padStyled(s string, width int) string {
	if gap := width - ansi.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// clipLines keeps at most height lines starting at offset.
func clipLines(text string, offset, height int) string {
	lines := strings.Split(text, "\n")
	if offset > len(lines) {
		offset = len(lines)
	}
	if offset < 0 {
		offset = 0
	}
	lines = lines[offset:]
	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}
