package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"signalsift/retrieval"
	"signalsift/types"
)

// screen identifies what the TUI is currently showing
type screen int

const (
	screenConnecting screen = iota
	screenIdle
	screenProcessing
	screenReport
	screenResults
)

// Model is the bubbletea model for the demo client
type Model struct {
	client *APIClient
	feed   string
	count  int

	screen  screen
	err     error
	result  *types.BatchResult
	results []retrieval.Result
}

// NewModel creates the initial model
func NewModel(apiURL, feed string, count int) Model {
	return Model{
		client: NewAPIClient(apiURL),
		feed:   feed,
		count:  count,
		screen: screenConnecting,
	}
}

// Init starts with a connectivity check
func (m Model) Init() tea.Cmd {
	return checkHealth(m.client)
}
