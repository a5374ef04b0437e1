package timing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	eventbus "github.com/hanpama/fieldtimer/internal/eventbus"
	events "github.com/hanpama/fieldtimer/internal/events"
	reqid "github.com/hanpama/fieldtimer/internal/reqid"
)

// Client sends derived queries to one GraphQL endpoint and times them. It
// never retries; every Time call is exactly one HTTP request.
type Client struct {
	endpoint string
	opts     *Options
	http     *http.Client
}

// New validates endpoint and builds a client for it.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("timing: invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("timing: endpoint %q must use http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("timing: endpoint %q has no host", endpoint)
	}

	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return &Client{endpoint: u.String(), opts: o, http: hc}, nil
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string { return c.endpoint }

type wireRequest struct {
	Query         string `json:"query"`
	Variables     any    `json:"variables"`
	OperationName string `json:"operationName,omitempty"`
}

type wireError struct {
	Message string `json:"message"`
}

type wireResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []wireError     `json:"errors"`
}

// Time sends req and classifies the outcome. Field-level failures are
// reported in the Result; the error is non-nil only when ctx itself was
// cancelled, in which case the partial call is discarded.
func (c *Client) Time(ctx context.Context, req Request) (Result, error) {
	ctx, _ = reqid.NewContext(ctx)
	res := Result{Index: req.Index, Field: req.Field, Query: req.Query}

	eventbus.Publish(ctx, events.FieldCallStart{
		Index:         req.Index,
		Field:         req.Field.String(),
		OperationName: req.OperationName,
		Endpoint:      c.endpoint,
	})

	res = c.do(ctx, req, res)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	eventbus.Publish(ctx, events.FieldCallFinish{
		Index:         req.Index,
		Field:         req.Field.String(),
		OperationName: req.OperationName,
		Endpoint:      c.endpoint,
		Outcome:       res.Outcome.String(),
		Status:        res.Status,
		Err:           res.Err,
		Duration:      res.Duration,
		Measured:      res.Measured,
	})
	return res, nil
}

func (c *Client) do(ctx context.Context, req Request, res Result) Result {
	body, err := c.encode(req)
	if err != nil {
		return transportFailure(res, fmt.Errorf("encode request: %w", err))
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	// The clock starts once a connection is in hand, so DNS, dialing and TLS
	// setup are not charged to the field.
	var connAt atomic.Pointer[time.Time]
	trace := &httptrace.ClientTrace{
		GotConn: func(httptrace.GotConnInfo) {
			now := time.Now()
			connAt.CompareAndSwap(nil, &now)
		},
	}

	httpReq, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return transportFailure(res, err)
	}
	c.applyHeaders(httpReq)

	sent := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if start := connAt.Load(); start != nil {
			res.Duration = time.Since(*start)
			res.Measured = true
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return transportFailure(res, fmt.Errorf("request timed out after %s: %w", c.opts.Timeout, err))
		}
		return transportFailure(res, err)
	}
	data, readErr := readBody(resp.Body, c.opts.MaxBodyBytes)
	end := time.Now()
	_ = resp.Body.Close()

	start := sent
	if at := connAt.Load(); at != nil {
		start = *at
	}
	res.Duration = end.Sub(start)
	res.Measured = true
	res.Status = resp.StatusCode

	if readErr != nil {
		if errors.Is(readErr, context.DeadlineExceeded) {
			readErr = fmt.Errorf("request timed out after %s: %w", c.opts.Timeout, readErr)
		}
		return transportFailure(res, fmt.Errorf("read response: %w", readErr))
	}
	res.Outcome, res.Message = classify(resp.StatusCode, data)
	return res
}

func (c *Client) encode(req Request) ([]byte, error) {
	var vars any = map[string]any{}
	if len(c.opts.Variables.Order) > 0 {
		vars = &c.opts.Variables
	}
	return json.Marshal(wireRequest{
		Query:         req.Query,
		Variables:     vars,
		OperationName: req.OperationName,
	})
}

// applyHeaders sets the fixed request shape first so that caller headers can
// override it.
func (c *Client) applyHeaders(r *http.Request) {
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Header.Set("Accept", "application/json")
	for name, values := range c.opts.Headers {
		if strings.EqualFold(name, "Host") {
			if len(values) > 0 {
				r.Host = values[0]
			}
			continue
		}
		r.Header.Del(name)
		for _, v := range values {
			r.Header.Add(name, v)
		}
	}
}

var errBodyTooLarge = errors.New("response body too large")

func readBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (limit %d bytes)", errBodyTooLarge, limit)
	}
	return data, nil
}

func transportFailure(res Result, err error) Result {
	res.Outcome = TransportError
	res.Message = err.Error()
	res.Err = err
	return res
}

// classify applies the outcome policy to a fully read response.
func classify(status int, body []byte) (Outcome, string) {
	if status < 200 || status > 299 {
		msg := fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
		var wr wireResponse
		if json.Unmarshal(body, &wr) == nil && len(wr.Errors) > 0 {
			msg += ": " + joinMessages(wr.Errors)
		} else if s := strings.TrimSpace(string(body)); s != "" {
			msg += ": " + truncate(s, 200)
		}
		return TransportError, msg
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return TransportError, "invalid GraphQL response: " + err.Error()
	}
	if len(wr.Errors) > 0 {
		return GraphQLError, joinMessages(wr.Errors)
	}
	if len(wr.Data) == 0 || string(wr.Data) == "null" {
		return TransportError, "response has neither data nor errors"
	}
	return Success, ""
}

func joinMessages(errs []wireError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) == 0 {
		return fmt.Sprintf("%d error(s) without message", len(errs))
	}
	return strings.Join(msgs, "; ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
