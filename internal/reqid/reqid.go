// Package reqid carries correlation identifiers on a context: one per timed
// call and one per run, so subscribers can stitch call events to their run.
package reqid

import (
	"context"
	"math/rand/v2"
)

type (
	callKey struct{}
	runKey  struct{}
)

// NewContext returns a copy of parent with a new random call ID stored.
// It also returns the generated ID.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int64()
	return context.WithValue(parent, callKey{}, id), id
}

// FromContext extracts the call ID from ctx.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(callKey{}).(int64)
	return id, ok
}

// WithRun stores the run ID on ctx.
func WithRun(parent context.Context, runID string) context.Context {
	return context.WithValue(parent, runKey{}, runID)
}

// RunFromContext extracts the run ID from ctx.
func RunFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runKey{}).(string)
	return id, ok && id != ""
}
