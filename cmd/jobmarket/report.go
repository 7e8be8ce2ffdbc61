package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobmarket/internal/model"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(14)

	valueStyle = lipgloss.NewStyle()

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	statusColors = map[string]lipgloss.Color{
		model.RunSuccess: lipgloss.Color("42"),  // green
		model.RunPartial: lipgloss.Color("214"), // orange
		model.RunFailed:  lipgloss.Color("196"), // red
	}
)

func statusStyle(status string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(statusColors[status])
}

func fieldLines(fields [][2]string) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(f[0]),
			valueStyle.Render(f[1]),
		))
	}
	return strings.Join(lines, "\n")
}

// renderFields prints label/value pairs in a bordered box.
func renderFields(w io.Writer, fields [][2]string) {
	fmt.Fprintln(w, boxStyle.Render(fieldLines(fields)))
}

// renderReport prints the outcome of one run.
func renderReport(w io.Writer, r model.RunReport) {
	window := "unbounded"
	if r.From != "" {
		window = r.From + " → " + r.To
	}
	fields := [][2]string{
		{"Run", r.RunID},
		{"Keyword", r.Keyword},
		{"Window", window},
		{"Pages", fmt.Sprintf("%d requested, %d skipped", r.PagesRequested, r.PagesSkipped)},
		{"Fetched", fmt.Sprintf("%d", r.Fetched)},
		{"Unclassified", fmt.Sprintf("%d", r.Dropped)},
		{"Duplicates", fmt.Sprintf("%d", r.Duplicates)},
		{"New rows", fmt.Sprintf("%d", r.Inserted)},
	}
	if r.SnapshotKey != "" {
		fields = append(fields, [2]string{"Snapshot", r.SnapshotKey})
	}
	if len(r.SkippedRanges) > 0 {
		fields = append(fields, [2]string{"Skipped", strings.Join(r.SkippedRanges, ", ")})
	}
	fields = append(fields, [2]string{"Duration", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()})

	body := titleStyle.Render("Ingestion "+statusStyle(r.Status).Render(r.Status)) + "\n" + fieldLines(fields)
	if r.NothingToInsert {
		body += "\n" + dimStyle.Render("Nothing new to insert.")
	}
	if r.Error != "" {
		body += "\n" + statusStyle(model.RunFailed).Render(r.Error)
	}
	fmt.Fprintln(w, boxStyle.Render(body))
}

// renderRuns prints one line per run, most recent first.
func renderRuns(w io.Writer, runs []model.RunReport) {
	fmt.Fprintf(w, "%-20s %-9s %-23s %8s %8s %8s  %s\n", "Started", "Status", "Window", "Fetched", "New", "Dupes", "Run")
	fmt.Fprintln(w, strings.Repeat("─", 110))
	for _, r := range runs {
		window := "unbounded"
		if r.From != "" {
			window = r.From + ".." + r.To
		}
		status := statusStyle(r.Status).Render(fmt.Sprintf("%-9s", r.Status))
		fmt.Fprintf(w, "%-20s %s %-23s %8d %8d %8d  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status, window, r.Fetched, r.Inserted, r.Duplicates,
			dimStyle.Render(r.RunID),
		)
	}
}
