package ui

import (
	"fmt"
	"sort"
	"strings"

	"quantumdie/internal/usage"
)

// UsageReport renders the token usage statistics.
func UsageReport(s Styles, stats usage.AggregatedStats) string {
	var sb strings.Builder

	sb.WriteString(s.Header.Render("Token Usage Statistics"))
	sb.WriteString("\n\n")

	if stats.Calls == 0 {
		sb.WriteString(s.Muted.Render("No oracle calls recorded yet."))
		return sb.String()
	}

	total := NewSimpleTable("")
	total.AddRow("Calls", fmt.Sprintf("%d", stats.Calls))
	total.AddRow("Total Input", fmt.Sprintf("%d", stats.TotalProject.Input))
	total.AddRow("Total Output", fmt.Sprintf("%d", stats.TotalProject.Output))
	total.AddRow("Grand Total", fmt.Sprintf("%d", stats.TotalProject.Total))
	sb.WriteString(total.View(s))

	renderTable := func(title string, data map[string]usage.TokenCounts) {
		if len(data) == 0 {
			return
		}
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		t := NewSimpleTable(title, "Name", "Input", "Output", "Total")
		for _, k := range keys {
			c := data[k]
			t.AddRow(k, fmt.Sprintf("%d", c.Input), fmt.Sprintf("%d", c.Output), fmt.Sprintf("%d", c.Total))
		}
		sb.WriteString("\n\n")
		sb.WriteString(t.View(s))
	}

	renderTable("By Model", stats.ByModel)
	renderTable("By Operation", stats.ByOperation)
	renderTable("By Session", stats.BySession)

	return sb.String()
}
