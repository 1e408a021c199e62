package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"signalsift/retrieval"
)

// checkHealth creates a command for the initial connectivity check
func checkHealth(client *APIClient) tea.Cmd {
	return func() tea.Msg {
		return HealthMsg{Err: client.Health()}
	}
}

// ingestFeed creates a command that runs one feed batch server-side
func ingestFeed(client *APIClient, feed string, count int) tea.Cmd {
	return func() tea.Msg {
		result, err := client.IngestFeed(feed, count)
		return BatchDoneMsg{Result: result, Err: err}
	}
}

// queryIncluded creates a command that fetches the top included items
func queryIncluded(client *APIClient, minRelevance float64) tea.Cmd {
	return func() tea.Msg {
		results, err := client.Query(retrieval.Query{MinRelevance: minRelevance, Limit: 10})
		return QueryDoneMsg{Results: results, Err: err}
	}
}
