package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOperation means the source holds fragments but no operation.
	ErrNoOperation = errors.New("document contains no operation")
	// ErrAmbiguousOperation means several operations exist and none was named.
	ErrAmbiguousOperation = errors.New("document contains several operations; specify an operation name")
	// ErrUnknownOperation means the requested operation name is not defined.
	ErrUnknownOperation = errors.New("operation not found")
	// ErrSubscription means the selected operation is a subscription, which
	// has no finite duration to time.
	ErrSubscription = errors.New("subscriptions cannot be timed")
)

// ParseError reports query text that could not be turned into a Document.
// Line and Column are 1-based and zero when no position is known.
type ParseError struct {
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return "parse error: " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }
