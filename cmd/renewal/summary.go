package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/metrics-renewal/internal/renewal"
)

var (
	summaryTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	summaryLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(10)
	summaryKept    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	summaryDropped = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	summaryBox     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// printSummary reports what a finished run did. Colors are dropped
// automatically when stdout is not a terminal.
func printSummary(w io.Writer, plan renewal.Plan, result *renewal.Result) {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, summaryLabel.Render(label), value)
	}
	lines := []string{
		summaryTitle.Render(fmt.Sprintf("Renewal for version %s", plan.Version)),
		"",
		row("renewed", summaryKept.Render(fmt.Sprintf("%d", len(result.Kept)))),
		row("removed", summaryDropped.Render(fmt.Sprintf("%d", len(result.Dropped)))),
		row("expires", fmt.Sprintf("%d", result.UpdatedExpiry)),
		"",
		row("decisions", result.DecisionList),
		row("request", plan.RequestPath),
		row("metrics", plan.OutputPath),
	}
	fmt.Fprintln(w, summaryBox.Render(strings.Join(lines, "\n")))
}
