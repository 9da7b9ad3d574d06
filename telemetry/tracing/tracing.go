// Package tracing wires the runtime's OpenTelemetry surface (spec §6:
// "tracing emits one span per engine invocation and one child span per
// node execution with parent linkage; span events carry {node_id,
// attempt, outcome}"), grounded on the teacher's go.mod otel stack
// (left unwired there) and on the span-per-event shape of
// graph/emit.OTelEmitter in the langgraph-go example.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
)

// NewProvider builds an OTLP/HTTP-exporting TracerProvider for
// serviceName. Callers register it with otel.SetTracerProvider and
// must Shutdown it before exit to flush pending spans.
func NewProvider(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("build otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// StartInvocation opens the root span for one engine invocation,
// returning the context child spans should start from.
func StartInvocation(ctx context.Context, tracer trace.Tracer, graphName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "graphrt.invoke", trace.WithAttributes(
		attribute.String("graphrt.graph", graphName),
	))
}

// EndInvocation closes span with a status derived from err.
func EndInvocation(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NodeHooks returns a scheduler.Hooks pair opening one child span per
// node dispatch against tracer, parented to whatever span ctx already
// carries (the invocation root span, if the caller wrapped ctx with
// StartInvocation first). Before and After run with the same ctx the
// scheduler was given, so a span opened in Before naturally parents to
// it; the span itself, not the ctx, is threaded to After via a
// closure-local map keyed by node id.
func NodeHooks(tracer trace.Tracer) scheduler.Hooks {
	spans := map[string]trace.Span{}

	return scheduler.Hooks{
		Before: func(ctx context.Context, node graph.Node, st *state.State) (scheduler.HookResult, error) {
			_, span := tracer.Start(ctx, "graphrt.node", trace.WithAttributes(
				attribute.String("graphrt.node_id", node.ID),
				attribute.String("graphrt.node_type", string(node.Type)),
			))
			spans[node.ID] = span
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			span, ok := spans[node.ID]
			if !ok {
				return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
			}
			delete(spans, node.ID)

			span.AddEvent("node_complete", trace.WithAttributes(
				attribute.String("node_id", node.ID),
				attribute.String("outcome", string(outcome.Kind)),
			))
			if outcome.Kind == exec.Fail && outcome.Err != nil {
				span.SetStatus(codes.Error, outcome.Err.Error())
				span.RecordError(outcome.Err)
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
	}
}

// Flush force-flushes the global tracer provider's pending spans,
// tolerating a no-op provider (e.g. in tests where none was configured).
func Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}
