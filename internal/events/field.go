package events

import "time"

// FieldCallStart is emitted just before a derived query is sent.
type FieldCallStart struct {
	Index         int
	Field         string
	OperationName string
	Endpoint      string
}

// FieldCallFinish is emitted once the call has been classified. It is not
// emitted for calls cancelled by the caller.
type FieldCallFinish struct {
	Index         int
	Field         string
	OperationName string
	Endpoint      string
	Outcome       string
	Status        int
	Err           error
	// Duration is the timed part of the call; Measured is false when the
	// call failed before a connection was obtained.
	Duration time.Duration
	Measured bool
}
