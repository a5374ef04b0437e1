package reqid

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %d from context, got %d ok=%v", id, got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestRunIDSurvivesCallContext(t *testing.T) {
	ctx := WithRun(context.Background(), "run-1")
	ctx, _ = NewContext(ctx)
	got, ok := RunFromContext(ctx)
	if !ok || got != "run-1" {
		t.Fatalf("expected run-1, got %q ok=%v", got, ok)
	}
	if _, ok := RunFromContext(WithRun(context.Background(), "")); ok {
		t.Fatalf("empty run id should not be reported")
	}
}
