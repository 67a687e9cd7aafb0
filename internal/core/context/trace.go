package context

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Origin names the entry point that started a unit of work.
type Origin string

const (
	OriginHTTP   Origin = "http"
	OriginWorker Origin = "worker"
	OriginSeed   Origin = "seed"
)

// TraceContext correlates the log lines and spans of one request or job run.
// TraceID and SpanID use the W3C hex form so they line up with otel spans.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
	Origin    Origin
	// Job is the worker job name; empty for HTTP requests.
	Job string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewJobTrace starts the trace of one run of a background job.
func NewJobTrace(origin Origin, job string) *TraceContext {
	return &TraceContext{
		TraceID:   NewTraceID(),
		SpanID:    NewSpanID(),
		RequestID: uuid.NewString(),
		Origin:    origin,
		Job:       job,
	}
}

// NewTraceID returns 32 random hex characters.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewSpanID returns 16 random hex characters.
func NewSpanID() string {
	return NewTraceID()[:16]
}
