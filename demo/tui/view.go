package tui

import (
	"fmt"
	"strings"
)

// View renders the current screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("signalsift demo"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	switch m.screen {
	case screenConnecting:
		b.WriteString(InfoStyle.Render("connecting to API..."))

	case screenIdle:
		b.WriteString(fmt.Sprintf("Feed: %s (%d articles)\n\n", HighlightStyle.Render(m.feed), m.count))
		b.WriteString(InfoStyle.Render("press 'i' to ingest, 'q' to quit"))

	case screenProcessing:
		b.WriteString(StatusStyle.Render("fetching, extracting, clustering, scoring..."))

	case screenReport:
		b.WriteString(m.reportView())
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("press 'r' for top results, 'i' to re-ingest, 'q' to quit"))

	case screenResults:
		b.WriteString(m.resultsView())
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("press 'b' for the report, 'i' to re-ingest, 'q' to quit"))
	}

	b.WriteString("\n")
	return b.String()
}

// reportView formats the batch report box
func (m Model) reportView() string {
	if m.result == nil {
		return InfoStyle.Render("no batch yet")
	}
	r := m.result.Report

	lines := []string{
		fmt.Sprintf("Batch:       %s", m.result.BatchID),
		fmt.Sprintf("Items:       %d (skipped %d, repeats %d)", r.TotalItems, r.SkippedItems, r.ExactDuplicates),
		fmt.Sprintf("Clusters:    %d", len(m.result.Clusters)),
		fmt.Sprintf("Included:    %d", r.IncludedCount),
		fmt.Sprintf("Review:      %d", r.ReviewCount),
		fmt.Sprintf("Excluded:    %d", r.ExcludedCount),
		fmt.Sprintf("Defaults:    %d", r.DegradedDefaults),
	}
	if len(r.Warnings) > 0 {
		lines = append(lines, ErrorStyle.Render(fmt.Sprintf("Warnings:    %d", len(r.Warnings))))
	}

	return BoxStyle.Render(strings.Join(lines, "\n"))
}

// resultsView formats the top retrieval results
func (m Model) resultsView() string {
	if len(m.results) == 0 {
		return InfoStyle.Render("no items above the inclusion threshold")
	}

	lines := make([]string, 0, len(m.results))
	for i, res := range m.results {
		title := res.Item.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		lines = append(lines, fmt.Sprintf("%2d. %.2f  %s", i+1, res.Score, title))
	}
	return BoxStyle.Render(strings.Join(lines, "\n"))
}
