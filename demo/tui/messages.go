package tui

import (
	"signalsift/retrieval"
	"signalsift/types"
)

// Messages for the tea program

// HealthMsg is sent after the initial connectivity check
type HealthMsg struct {
	Err error
}

// BatchDoneMsg is sent when a feed ingest batch finishes
type BatchDoneMsg struct {
	Result *types.BatchResult
	Err    error
}

// QueryDoneMsg is sent when a retrieval query returns
type QueryDoneMsg struct {
	Results []retrieval.Result
	Err     error
}
