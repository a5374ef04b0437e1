package timing

import (
	"net/http"
	"time"

	"github.com/dolmen-go/jsonmap"
)

// Options configures the timing client.
//
// Defaults:
// - Timeout:      30s per request (a timeout is a TransportError)
// - MaxBodyBytes: 32 MiB read from a response before giving up
// - HTTPClient:   a dedicated client with its own transport
//
// Headers and Variables are shared read-only by every call.
type Options struct {
	Timeout      time.Duration
	Headers      http.Header
	Variables    jsonmap.Ordered
	HTTPClient   *http.Client
	MaxBodyBytes int64
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Timeout:      30 * time.Second,
		MaxBodyBytes: 32 << 20,
	}
}

func WithTimeout(d time.Duration) Option     { return func(o *Options) { o.Timeout = d } }
func WithHeaders(h http.Header) Option       { return func(o *Options) { o.Headers = h.Clone() } }
func WithVariables(v jsonmap.Ordered) Option { return func(o *Options) { o.Variables = v } }
func WithHTTPClient(c *http.Client) Option   { return func(o *Options) { o.HTTPClient = c } }
func WithMaxBodyBytes(n int64) Option        { return func(o *Options) { o.MaxBodyBytes = n } }
