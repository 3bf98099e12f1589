package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var partialBlocks = []string{"", "▏", "▎", "▍", "▌", "▋", "▊", "▉"}

// Bar renders frac (0..1) of width cells using eighth-block glyphs. The
// result is always exactly width cells wide.
func Bar(s Styles, frac float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(frac) || frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	eighths := int(math.Round(frac * float64(width) * 8))
	full := eighths / 8
	rem := eighths % 8

	filled := strings.Repeat("█", full) + partialBlocks[rem]
	used := full
	if rem > 0 {
		used++
	}
	return s.Bar.Render(filled) + s.BarDim.Render(strings.Repeat("░", width-used))
}

// BarChart renders labelled horizontal bars scaled to max. Values are
// formatted with format, e.g. "%.3f" or "%5.1f%%".
func BarChart(s Styles, labels []string, values []float64, max float64, width int, format string) string {
	if len(values) == 0 {
		return s.Muted.Render("no data")
	}
	if max <= 0 {
		max = 1
	}

	labelWidth := 0
	for _, l := range labels {
		if w := lipgloss.Width(l); w > labelWidth {
			labelWidth = w
		}
	}
	barWidth := width - labelWidth - 10
	if barWidth < 4 {
		barWidth = 4
	}

	labelStyle := s.Muted.Width(labelWidth)
	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			labelStyle.Render(label), Bar(s, v/max, barWidth), s.Body.Render(fmt.Sprintf(format, v))))
	}
	return strings.Join(lines, "\n")
}
