package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6b7280")).
			Padding(0, 1)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#249edc"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

// Field is one "label: value" line of a box.
type Field struct {
	Label string
	Value string
}

// Box renders fields in a bordered box headed by title. Empty values are
// shown as NOT SET.
func Box(title string, fields ...Field) string {
	lines := make([]string, 0, len(fields)+1)
	if title != "" {
		lines = append(lines, titleStyle.Render(title))
	}
	for _, f := range fields {
		value := f.Value
		if value == "" {
			value = failureStyle.Render("NOT SET")
		}
		lines = append(lines, labelStyle.Render(f.Label+":")+" "+value)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// Status renders a credential check outcome.
func Status(err error) string {
	if err != nil {
		return failureStyle.Render("FAILURE")
	}
	return successStyle.Render("SUCCESS")
}
