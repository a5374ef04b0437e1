package timing

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dolmen-go/jsonmap"
	document "github.com/hanpama/fieldtimer/internal/document"
	eventbus "github.com/hanpama/fieldtimer/internal/eventbus"
	events "github.com/hanpama/fieldtimer/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func request(field string) Request {
	return Request{Index: 0, Field: document.FieldID{Name: field}, Query: "query Q_" + field + " { " + field + " }", OperationName: "Q_" + field}
}

func TestTime_SuccessAndRequestShape(t *testing.T) {
	var got struct {
		Method        string
		ContentType   string
		Auth          string
		Query         string         `json:"query"`
		Variables     map[string]any `json:"variables"`
		OperationName string         `json:"operationName"`
	}
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		got.Method = r.Method
		got.ContentType = r.Header.Get("Content-Type")
		got.Auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(`{"data":{"a":1}}`)(w, r)
	})

	var vars jsonmap.Ordered
	require.NoError(t, json.Unmarshal([]byte(`{"x":3}`), &vars))
	c, err := New(srv.URL,
		WithHeaders(http.Header{"Authorization": {"Bearer t"}}),
		WithVariables(vars),
	)
	require.NoError(t, err)

	res, err := c.Time(context.Background(), request("a"))
	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.True(t, res.Measured)
	assert.True(t, res.Reached())
	assert.Empty(t, res.Message)
	assert.Equal(t, document.FieldID{Name: "a"}, res.Field)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "application/json; charset=utf-8", got.ContentType)
	assert.Equal(t, "Bearer t", got.Auth)
	assert.Equal(t, "query Q_a { a }", got.Query)
	assert.Equal(t, "Q_a", got.OperationName)
	assert.Equal(t, map[string]any{"x": float64(3)}, got.Variables)
}

func TestTime_VariablesKeepKeyOrder(t *testing.T) {
	var raw string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		respond(`{"data":{}}`)(w, r)
	})
	var vars jsonmap.Ordered
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":1,"alpha":2}`), &vars))
	c, err := New(srv.URL, WithVariables(vars))
	require.NoError(t, err)

	_, err = c.Time(context.Background(), request("a"))
	require.NoError(t, err)
	zi, ai := strings.Index(raw, `"zeta"`), strings.Index(raw, `"alpha"`)
	require.True(t, zi >= 0 && ai > zi, raw)
}

func TestTime_AnonymousOperationOmitsName(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		respond(`{"data":{"a":null}}`)(w, r)
	})
	c, err := New(srv.URL)
	require.NoError(t, err)

	res, err := c.Time(context.Background(), Request{Field: document.FieldID{Name: "a"}, Query: "{ a }"})
	require.NoError(t, err)
	require.Equal(t, Success, res.Outcome)
	require.NotContains(t, raw, "operationName")
	require.JSONEq(t, `{}`, string(raw["variables"]))
}

func TestTime_Classification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		outcome Outcome
		message string
	}{
		{name: "graphql errors", status: 200, body: `{"data":null,"errors":[{"message":"boom"},{"message":"bad"}]}`, outcome: GraphQLError, message: "boom; bad"},
		{name: "partial data with errors", status: 200, body: `{"data":{"a":1},"errors":[{"message":"half"}]}`, outcome: GraphQLError, message: "half"},
		{name: "server error", status: 500, body: `oops`, outcome: TransportError, message: "HTTP 500 Internal Server Error: oops"},
		{name: "bad request with graphql body", status: 400, body: `{"errors":[{"message":"Cannot query field"}]}`, outcome: TransportError, message: "HTTP 400 Bad Request: Cannot query field"},
		{name: "not json", status: 200, body: `<html>`, outcome: TransportError, message: "invalid GraphQL response"},
		{name: "empty response", status: 200, body: `{}`, outcome: TransportError, message: "neither data nor errors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			c, err := New(srv.URL)
			require.NoError(t, err)

			res, err := c.Time(context.Background(), request("a"))
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Contains(t, res.Message, tt.message)
			assert.Equal(t, tt.status, res.Status)
			assert.True(t, res.Measured, "duration is known once a response arrived")
		})
	}
}

func TestTime_TimeoutIsTransportError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c, err := New(srv.URL, WithTimeout(30*time.Millisecond))
	require.NoError(t, err)

	res, err := c.Time(context.Background(), request("slow"))
	require.NoError(t, err)
	assert.Equal(t, TransportError, res.Outcome)
	assert.Contains(t, res.Message, "timed out")
	assert.True(t, res.Measured)
	assert.Greater(t, res.Duration, 10*time.Millisecond)
	assert.False(t, IsUnreachable(res.Err))
}

func TestTime_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(respond(`{"data":{}}`))
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	res, err := c.Time(context.Background(), request("a"))
	require.NoError(t, err)
	assert.Equal(t, TransportError, res.Outcome)
	assert.False(t, res.Measured)
	assert.False(t, res.Reached())
	assert.True(t, IsUnreachable(res.Err), "err: %v", res.Err)
}

func TestTime_CancelledCallYieldsNoResult(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		// The server notices the client going away only once the body is read.
		_, _ = io.Copy(io.Discard, r.Body)
		close(entered)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Runs before srv.Close, so a handler still waiting cannot block it.
	t.Cleanup(func() { close(release) })
	c, err := New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-entered
		cancel()
	}()
	res, err := c.Time(ctx, request("a"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Result{}, res)
}

func TestTime_BodyLimit(t *testing.T) {
	srv := newServer(t, respond(`{"data":{"a":"`+strings.Repeat("x", 100)+`"}}`))
	c, err := New(srv.URL, WithMaxBodyBytes(16))
	require.NoError(t, err)

	res, err := c.Time(context.Background(), request("a"))
	require.NoError(t, err)
	assert.Equal(t, TransportError, res.Outcome)
	assert.Contains(t, res.Message, "too large")
}

func TestTime_HeadersOverrideDefaults(t *testing.T) {
	var host, accept string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		host, accept = r.Host, r.Header.Get("Accept")
		respond(`{"data":{}}`)(w, r)
	})
	c, err := New(srv.URL, WithHeaders(http.Header{
		"Host":   {"api.example.com"},
		"Accept": {"application/graphql-response+json"},
	}))
	require.NoError(t, err)

	_, err = c.Time(context.Background(), request("a"))
	require.NoError(t, err)
	assert.Equal(t, "api.example.com", host)
	assert.Equal(t, "application/graphql-response+json", accept)
}

func TestTime_PublishesEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var started []events.FieldCallStart
	var finished []events.FieldCallFinish
	defer eventbus.Subscribe(func(_ context.Context, e events.FieldCallStart) { started = append(started, e) })()
	defer eventbus.Subscribe(func(_ context.Context, e events.FieldCallFinish) { finished = append(finished, e) })()

	srv := newServer(t, respond(`{"errors":[{"message":"nope"}]}`))
	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.Time(context.Background(), request("a"))
	require.NoError(t, err)

	require.Len(t, started, 1)
	require.Equal(t, "a", started[0].Field)
	require.Len(t, finished, 1)
	require.Equal(t, "graphql_error", finished[0].Outcome)
	require.Equal(t, srv.URL, finished[0].Endpoint)
}

func TestNew_RejectsBadEndpoints(t *testing.T) {
	for _, ep := range []string{"ftp://example.com", "http://", "::not a url", "example.com/graphql"} {
		_, err := New(ep)
		require.Error(t, err, ep)
	}
}

func TestIsUnreachable(t *testing.T) {
	assert.True(t, IsUnreachable(&net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}))
	assert.False(t, IsUnreachable(&net.DNSError{Err: "timeout", IsTimeout: true}))
	assert.False(t, IsUnreachable(context.DeadlineExceeded))
	assert.False(t, IsUnreachable(nil))
}
