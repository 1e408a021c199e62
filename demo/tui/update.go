package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and key presses
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit

		case "i":
			if m.screen == screenIdle || m.screen == screenReport || m.screen == screenResults {
				m.screen = screenProcessing
				m.err = nil
				return m, ingestFeed(m.client, m.feed, m.count)
			}

		case "r":
			if m.screen == screenReport || m.screen == screenResults {
				return m, queryIncluded(m.client, 0.65)
			}

		case "b":
			if m.screen == screenResults && m.result != nil {
				m.screen = screenReport
			}
		}

	case HealthMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, tea.Quit
		}
		m.screen = screenIdle

	case BatchDoneMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.screen = screenIdle
			return m, nil
		}
		m.result = msg.Result
		m.screen = screenReport

	case QueryDoneMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.results = msg.Results
		m.screen = screenResults
	}

	return m, nil
}
