// Package runner coordinates a timing run: it isolates the document's
// top-level fields, times each derived query and collects one result per
// field.
//
// Calls are issued one at a time by default, each waiting for the previous
// one to finish, because overlapping requests compete for the same network
// path and server and skew the very latencies being measured. A bounded
// concurrent mode exists for throughput and is opt-in.
//
// Failures of a single field (transport or GraphQL errors) are recorded in
// that field's result and never stop the run. Two conditions abort it with a
// FatalRunError instead: the document has no fields to time, or the endpoint
// is unreachable before any call has reached it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	document "github.com/hanpama/fieldtimer/internal/document"
	eventbus "github.com/hanpama/fieldtimer/internal/eventbus"
	events "github.com/hanpama/fieldtimer/internal/events"
	isolate "github.com/hanpama/fieldtimer/internal/isolate"
	reqid "github.com/hanpama/fieldtimer/internal/reqid"
	timing "github.com/hanpama/fieldtimer/internal/timing"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Timer times a single derived query. *timing.Client implements it.
type Timer interface {
	Time(ctx context.Context, req timing.Request) (timing.Result, error)
}

var _ Timer = (*timing.Client)(nil)

// Runner sequences calls over the units of a document.
type Runner struct {
	timer   Timer
	opts    *Options
	limiter *rate.Limiter
}

func New(timer Timer, opts ...Option) *Runner {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	r := &Runner{timer: timer, opts: o}
	if o.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(o.Rate), 1)
	}
	return r
}

// runState is owned by one Run call.
type runState struct {
	results []timing.Result
	done    []bool
	reached atomic.Bool
}

func (s *runState) completed() []timing.Result {
	out := make([]timing.Result, 0, len(s.results))
	for i, ok := range s.done {
		if ok {
			out = append(out, s.results[i])
		}
	}
	return out
}

// Run times every top-level field of doc in query order and returns one
// result per field, ordered by field index.
//
// On a fatal condition it returns a *FatalRunError and no results. When ctx
// is cancelled it returns the results completed so far together with the
// context error; the call in flight at that moment yields no result.
func (r *Runner) Run(ctx context.Context, doc *document.Document) ([]timing.Result, error) {
	n := isolate.Count(doc)
	if n == 0 {
		err := &FatalRunError{Reason: "isolation produced no fields", Err: ErrNoFields}
		r.opts.Logger.Error("run aborted", "error", err)
		return nil, err
	}

	runID := uuid.NewString()
	ctx = reqid.WithRun(ctx, runID)
	st := &runState{results: make([]timing.Result, n), done: make([]bool, n)}

	start := time.Now()
	eventbus.Publish(ctx, events.RunStart{
		RunID:       runID,
		Operation:   doc.Name(),
		Fields:      n,
		Concurrency: r.opts.Concurrency,
	})

	var err error
	if r.opts.Concurrency == 1 {
		err = r.sequential(ctx, doc, st)
	} else {
		err = r.concurrent(ctx, doc, st)
	}

	var results []timing.Result
	var fatal *FatalRunError
	if errors.As(err, &fatal) {
		r.opts.Logger.Error("run aborted", "run", runID, "error", err)
	} else {
		results = st.completed()
	}

	failures := 0
	for _, res := range results {
		if res.Outcome != timing.Success {
			failures++
		}
	}
	eventbus.Publish(ctx, events.RunFinish{
		RunID:    runID,
		Results:  len(results),
		Failures: failures,
		Err:      err,
		Duration: time.Since(start),
	})
	return results, err
}

func (r *Runner) sequential(ctx context.Context, doc *document.Document, st *runState) error {
	for u := range isolate.All(doc) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.step(ctx, u, st); err != nil {
			return err
		}
	}
	return nil
}

// concurrent times the first unit alone so an unreachable endpoint fails
// the run before any fan-out, then keeps at most Concurrency calls in flight.
func (r *Runner) concurrent(ctx context.Context, doc *document.Document, st *runState) error {
	units := slices.Collect(isolate.All(doc))
	if err := r.step(ctx, units[0], st); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for _, u := range units[1:] {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.step(gctx, u, st)
		})
	}
	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// step times one unit and stores its result. Each unit writes only its own
// slot, so concurrent steps need no lock.
func (r *Runner) step(ctx context.Context, u isolate.Unit, st *runState) error {
	res, err := r.call(ctx, u)
	if err != nil {
		return err
	}
	if res.Reached() {
		st.reached.Store(true)
	} else if !st.reached.Load() && res.Outcome == timing.TransportError && timing.IsUnreachable(res.Err) {
		return &FatalRunError{
			Reason: fmt.Sprintf("first call for %s failed", res.Field),
			Err:    fmt.Errorf("%w: %v", ErrUnreachable, res.Err),
		}
	}
	st.results[u.Index] = res
	st.done[u.Index] = true
	return nil
}

var errRetryable = errors.New("retryable transport error")

func (r *Runner) call(ctx context.Context, u isolate.Unit) (timing.Result, error) {
	req := timing.Request{
		Index:         u.Index,
		Field:         u.Field,
		Query:         u.Document.String(),
		OperationName: u.Document.Name(),
	}
	if r.opts.Retries <= 0 {
		res, err := r.time(ctx, req)
		if err == nil {
			r.logResult(res, 1)
		}
		return res, err
	}

	var last timing.Result
	attempts := 0
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.RetryInterval
	_, err := backoff.Retry(ctx, func() (timing.Result, error) {
		attempts++
		res, err := r.time(ctx, req)
		if err != nil {
			return res, backoff.Permanent(err)
		}
		last = res
		if res.Outcome == timing.TransportError && !timing.IsUnreachable(res.Err) {
			r.opts.Logger.Debug("transport error, retrying", "field", res.Field.String(), "attempt", attempts, "message", res.Message)
			return res, errRetryable
		}
		return res, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(r.opts.Retries+1)))

	if cerr := ctx.Err(); cerr != nil {
		return timing.Result{}, cerr
	}
	if err != nil && !errors.Is(err, errRetryable) {
		return timing.Result{}, err
	}
	r.logResult(last, attempts)
	return last, nil
}

// time waits for the pacing limiter, if any, and issues one call.
func (r *Runner) time(ctx context.Context, req timing.Request) (timing.Result, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return timing.Result{}, cerr
			}
			return timing.Result{}, fmt.Errorf("pacing: %w", err)
		}
	}
	return r.timer.Time(ctx, req)
}

func (r *Runner) logResult(res timing.Result, attempts int) {
	r.opts.Logger.Debug("field timed",
		"index", res.Index,
		"field", res.Field.String(),
		"outcome", res.Outcome.String(),
		"status", res.Status,
		"duration", res.Duration,
		"measured", res.Measured,
		"attempts", attempts,
	)
}
