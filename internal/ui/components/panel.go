package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/pharmcheck/pharmcheck/internal/ui/theme"
)

// ContentWidth returns the inner width used for centered content so
// sections line up.
func ContentWidth(frameWidth int) int {
	return min(max(frameWidth-6, 20), 72)
}

// Panel wraps content in a rounded card at width w.
func Panel(content string, w int, border color.Color) string {
	return theme.Card.
		BorderForeground(border).
		Width(w).
		Render(content)
}

// ScoreBar renders one labelled bar of a horizontal bar chart.
func ScoreBar(label string, percent, labelWidth, barWidth int, fill color.Color) string {
	percent = min(max(percent, 0), 100)
	filled := barWidth * percent / 100

	name := label
	if lipgloss.Width(name) > labelWidth {
		name = truncate(name, labelWidth)
	}
	name += strings.Repeat(" ", max(labelWidth-lipgloss.Width(name), 0))

	return lipgloss.NewStyle().Foreground(theme.Text).Render(name) + " " +
		lipgloss.NewStyle().Foreground(fill).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("░", barWidth-filled)) +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf(" %3d%%", percent))
}

func truncate(s string, w int) string {
	if w <= 1 {
		return "…"
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > w {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimRight(string(runes), " ") + "…"
}
