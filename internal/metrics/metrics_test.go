package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	eventbus "github.com/hanpama/fieldtimer/internal/eventbus"
	events "github.com/hanpama/fieldtimer/internal/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishRun(ctx context.Context) {
	eventbus.Publish(ctx, events.RunStart{RunID: "r", Operation: "Q", Fields: 3})
	eventbus.Publish(ctx, events.FieldCallFinish{Field: "a", OperationName: "Q_a", Outcome: "ok", Status: 200, Duration: 20 * time.Millisecond, Measured: true})
	eventbus.Publish(ctx, events.FieldCallFinish{Field: "b", OperationName: "Q_b", Outcome: "graphql_error", Status: 200, Duration: 5 * time.Millisecond, Measured: true})
	eventbus.Publish(ctx, events.FieldCallFinish{Field: "c", OperationName: "Q_c", Outcome: "transport_error", Err: errors.New("refused")})
	eventbus.Publish(ctx, events.RunFinish{RunID: "r", Results: 3, Failures: 2, Duration: 2 * time.Second})
}

func TestSubscribeRecordsCalls(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	m := New()
	defer m.Subscribe()()
	publishRun(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsTotal.WithLabelValues("Q_a", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsTotal.WithLabelValues("Q_c", "transport_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CallDuration), "unmeasured call is not observed")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RunFields))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunDuration))
}

func TestUnsubscribe(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	m := New()
	m.Subscribe()()
	publishRun(context.Background())
	assert.Equal(t, 0, testutil.CollectAndCount(m.CallsTotal))
}

func TestWriteTextfile(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	m := New()
	defer m.Subscribe()()
	publishRun(context.Background())

	path := filepath.Join(t.TempDir(), "fieldtimer.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `fieldtimer_field_calls_total{operation="Q_b",outcome="graphql_error"} 1`)
	assert.Contains(t, out, "fieldtimer_field_call_duration_seconds_bucket")
	assert.True(t, strings.Contains(out, "fieldtimer_run_fields 3"))
}
