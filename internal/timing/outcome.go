package timing

import (
	"fmt"
	"time"

	document "github.com/hanpama/fieldtimer/internal/document"
)

// Outcome classifies a timed call.
type Outcome int

const (
	// Success means the endpoint answered 2xx with data and no errors.
	Success Outcome = iota
	// TransportError covers connection failures, timeouts, non-2xx statuses
	// and bodies that are not GraphQL responses.
	TransportError
	// GraphQLError means a well-formed response carried top-level errors.
	GraphQLError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "ok"
	case TransportError:
		return "transport_error"
	case GraphQLError:
		return "graphql_error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Request is one derived query to time.
type Request struct {
	Index         int
	Field         document.FieldID
	Query         string
	OperationName string
}

// Result is the immutable record of one timed call.
type Result struct {
	Index int
	Field document.FieldID
	// Duration runs from the moment a connection was obtained for the
	// request until the whole body was read, or until the failure. Measured
	// is false when the call failed before that starting point.
	Duration time.Duration
	Measured bool
	Outcome  Outcome
	// Status is the HTTP status code, or 0 when no response arrived.
	Status  int
	Message string
	Query   string
	// Err is the transport-level cause for TransportError outcomes.
	Err error
}

// Reached reports whether the call got an HTTP response from the endpoint.
func (r Result) Reached() bool { return r.Status != 0 }
