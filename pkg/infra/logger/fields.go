// Package logger carries structured log fields through a context.
//
// The request id middleware stores request_id here; GetLogger adds the
// trace_id and span_id of the active span, so log lines written while
// handling a request can be joined with its trace.
package logger

import (
	"context"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"go.opentelemetry.io/otel/trace"
)

type contextKey int

const loggerFieldsKey contextKey = iota

// loggerFields holds structured logging fields in insertion order.
type loggerFields struct {
	keys   []string
	values map[string]interface{}
}

func newLoggerFields() *loggerFields {
	return &loggerFields{values: make(map[string]interface{})}
}

// clone creates a copy so contexts derived earlier are not affected.
func (lf *loggerFields) clone() *loggerFields {
	out := &loggerFields{
		keys:   append([]string(nil), lf.keys...),
		values: make(map[string]interface{}, len(lf.values)),
	}
	for k, v := range lf.values {
		out.values[k] = v
	}
	return out
}

func (lf *loggerFields) set(key string, value interface{}) {
	if _, ok := lf.values[key]; !ok {
		lf.keys = append(lf.keys, key)
	}
	lf.values[key] = value
}

func (lf *loggerFields) toSlice() []interface{} {
	if len(lf.keys) == 0 {
		return nil
	}
	slice := make([]interface{}, 0, len(lf.keys)*2)
	for _, k := range lf.keys {
		slice = append(slice, k, lf.values[k])
	}
	return slice
}

func getLoggerFields(ctx context.Context) *loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(*loggerFields); ok {
		return lf
	}
	return newLoggerFields()
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return WithFields(ctx, "request_id", requestID)
}

// WithFields adds key-value pairs to the context logger fields.
// A trailing key without value and non-string keys are ignored.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	if len(keysAndValues) < 2 {
		return ctx
	}
	if len(keysAndValues)%2 != 0 {
		keysAndValues = keysAndValues[:len(keysAndValues)-1]
	}

	lf := getLoggerFields(ctx).clone()
	for i := 0; i < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			lf.set(key, keysAndValues[i+1])
		}
	}
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// GetContextFields returns the context fields followed by the trace and span
// ids of the active span, as a key-value slice.
func GetContextFields(ctx context.Context) []interface{} {
	fields := getLoggerFields(ctx).toSlice()

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		fields = append(fields, "trace_id", spanCtx.TraceID().String())
	}
	if spanCtx.HasSpanID() {
		fields = append(fields, "span_id", spanCtx.SpanID().String())
	}
	return fields
}

// GetLogger returns the global logger with the context fields attached.
func GetLogger(ctx context.Context) core.Logger {
	base := logger.Global()
	fields := GetContextFields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
