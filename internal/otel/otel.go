// Package otel turns run and call events into OpenTelemetry spans: one
// "fieldtimer.run" span per run with a "graphql.field" child per timed call.
package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/fieldtimer/internal/eventbus"
	events "github.com/hanpama/fieldtimer/internal/events"
	reqid "github.com/hanpama/fieldtimer/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentation = "github.com/hanpama/fieldtimer"

// Setup exports spans over OTLP/gRPC to endpoint and attaches eventbus
// subscribers. If endpoint is empty, no telemetry is configured. The
// returned function flushes pending spans and detaches the subscribers.
func Setup(ctx context.Context, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	detach := Attach(tp)
	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach subscribes a span recorder backed by tp to the event bus.
func Attach(tp trace.TracerProvider) (detach func()) {
	s := &subscriber{tracer: tp.Tracer(instrumentation)}
	return s.register()
}

type subscriber struct {
	tracer    trace.Tracer
	runSpans  sync.Map // run id -> trace.Span
	callSpans sync.Map // call id -> callSpan
}

type callSpan struct {
	span trace.Span
	run  string
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.RunStart) {
			_, span := s.tracer.Start(ctx, "fieldtimer.run")
			span.SetAttributes(
				attribute.String("fieldtimer.run.id", e.RunID),
				attribute.String("graphql.operation.name", e.Operation),
				attribute.Int("fieldtimer.fields", e.Fields),
				attribute.Int("fieldtimer.concurrency", e.Concurrency),
			)
			s.runSpans.Store(e.RunID, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.RunFinish) {
			// Calls cancelled in flight never publish a finish event.
			s.callSpans.Range(func(k, v any) bool {
				if c := v.(callSpan); c.run == e.RunID {
					s.callSpans.Delete(k)
					c.span.SetStatus(codes.Error, "cancelled")
					c.span.End()
				}
				return true
			})

			v, ok := s.runSpans.LoadAndDelete(e.RunID)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.Int("fieldtimer.results", e.Results),
				attribute.Int("fieldtimer.failures", e.Failures),
			)
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.FieldCallStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := ctx
			run, _ := reqid.RunFromContext(ctx)
			if v, ok := s.runSpans.Load(run); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "graphql.field", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				attribute.String("graphql.field", e.Field),
				attribute.Int("graphql.field.index", e.Index),
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("http.url", e.Endpoint),
			)
			s.callSpans.Store(rid, callSpan{span: span, run: run})
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.FieldCallFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.callSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(callSpan).span
			span.SetAttributes(
				attribute.String("fieldtimer.outcome", e.Outcome),
				attribute.Bool("fieldtimer.measured", e.Measured),
				attribute.Float64("fieldtimer.duration_ms", float64(e.Duration.Microseconds())/1000),
			)
			if e.Status != 0 {
				span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			}
			if e.Err != nil {
				span.RecordError(e.Err)
			}
			if e.Outcome != "ok" {
				span.SetStatus(codes.Error, e.Outcome)
			}
			span.End()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
