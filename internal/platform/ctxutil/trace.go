package ctxutil

import (
	"context"
	"net/http"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

type traceDataKey struct{}

// TraceData identifies the inbound request a unit of work belongs to.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

// LogFields returns trace_id and request_id key/value pairs for ctx, or nil.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var fields []interface{}
	if td.TraceID != "" {
		fields = append(fields, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		fields = append(fields, "request_id", td.RequestID)
	}
	return fields
}

// Propagate copies ctx's request id onto an outbound request so the
// downstream service logs under the same id. Trace ids travel through the
// otel propagator instead.
func Propagate(ctx context.Context, req *http.Request) {
	if td := GetTraceData(ctx); td != nil && td.RequestID != "" && req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, td.RequestID)
	}
}
