package runner

import (
	"log/slog"
	"time"
)

// Options configures the run coordinator.
//
// Defaults:
// - Concurrency:   1 (strictly sequential)
// - Retries:       0
// - RetryInterval: 200ms initial backoff between retries
// - Rate:          0 (calls are not paced)
// - Logger:        slog.Default()
type Options struct {
	// Concurrency bounds how many calls may be in flight at once. Anything
	// above 1 trades measurement accuracy for speed: concurrent calls share
	// the network path and the server, which inflates every timing.
	Concurrency int

	// Retries is how many extra attempts a call failing with a transport
	// error gets. Unreachable endpoints and GraphQL errors are never retried.
	Retries       int
	RetryInterval time.Duration

	// Rate caps calls started per second, retries included, to go easy on
	// shared endpoints. Zero disables pacing.
	Rate float64

	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Concurrency:   1,
		RetryInterval: 200 * time.Millisecond,
	}
}

func WithConcurrency(n int) Option             { return func(o *Options) { o.Concurrency = n } }
func WithRetries(n int) Option                 { return func(o *Options) { o.Retries = n } }
func WithRetryInterval(d time.Duration) Option { return func(o *Options) { o.RetryInterval = d } }
func WithRate(perSecond float64) Option        { return func(o *Options) { o.Rate = perSecond } }
func WithLogger(l *slog.Logger) Option         { return func(o *Options) { o.Logger = l } }
