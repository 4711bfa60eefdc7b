package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_NotFound(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithRunID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, l := WithRunID(context.Background(), base, "run-1")
	l.Info("started")
	FromContext(ctx).Info("again")

	assert.Equal(t, "run-1", GetRunID(ctx))
	assert.Empty(t, GetRequestID(ctx))
	for _, entry := range logs.All() {
		assert.Equal(t, "run-1", entry.ContextMap()["run_id"])
	}
	assert.Equal(t, 2, logs.Len())
}

func TestWithRequestID(t *testing.T) {
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")
	assert.Equal(t, "req-9", GetRequestID(ctx))
}

func TestL_AddsTraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	L(ctx).Info("no span")

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	L(ctx).Info("with span")
	span.End()

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "trace_id")
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[1].ContextMap()["trace_id"])
}

func TestCtx_FallsBackWhenContextHasNoLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.New(core)

	Ctx(context.Background(), fallback).Info("fallback")

	other, otherLogs := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(other))
	Ctx(ctx, fallback).Info("context")

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, 1, otherLogs.Len())
}
