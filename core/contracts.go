package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TransportRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Query    map[string]string
	Body     []byte
	Metadata map[string]any
	Timeout  time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// MetadataStore caches caller-supplied transaction metadata between
// creation and verification. Entries expire after their TTL or on
// explicit delete, whichever comes first; deleting an absent key is a
// no-op. Implementations must be safe for concurrent use.
type MetadataStore interface {
	Put(key string, value map[string]any, ttl time.Duration)
	Get(key string) (map[string]any, bool)
	Delete(key string)
	Len() int
}

// TokenSource yields a provider access token, refreshing lazily once
// the cached token's validity window has passed.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// EventHandler is a host-supplied callback for one lifecycle event.
// Handler failures are isolated by the dispatcher and never reach the
// verification flow that emitted the event.
type EventHandler func(ctx context.Context, event Event)

// ErrorReporter is the dual-channel error surface: operation failures
// are returned to the caller and also reported here so automated
// handlers observe them through the error event.
type ErrorReporter interface {
	ReportError(ctx context.Context, operation string, provider string, err error, raw any)
}

// InboundRequest carries a raw inbound webhook delivery.
type InboundRequest struct {
	ProviderID string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Metadata   map[string]any
}
