package runner

import "errors"

var (
	// ErrNoFields means isolation produced nothing to time.
	ErrNoFields = errors.New("no top-level fields to time")
	// ErrUnreachable means the endpoint could not be contacted before any
	// call reached it, so every further call would fail the same way.
	ErrUnreachable = errors.New("endpoint unreachable")
)

// FatalRunError aborts a whole run. No per-field results accompany it.
type FatalRunError struct {
	Reason string
	Err    error
}

func (e *FatalRunError) Error() string {
	if e.Err == nil {
		return "run aborted: " + e.Reason
	}
	return "run aborted: " + e.Reason + ": " + e.Err.Error()
}

func (e *FatalRunError) Unwrap() error { return e.Err }
