package events

import "time"

// RunStart is emitted when the coordinator begins timing a document.
type RunStart struct {
	RunID       string
	Operation   string
	Fields      int
	Concurrency int
}

// RunFinish is emitted when a run ends, successfully or not. Err is the
// fatal or cancellation error, if any.
type RunFinish struct {
	RunID    string
	Results  int
	Failures int
	Err      error
	Duration time.Duration
}
