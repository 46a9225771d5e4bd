package core

import (
	"context"
	"time"

	"featureboard/pkg/domain"
)

// Logger is the structured logging contract used by the service. Key/value
// pairs follow the message in alternating order.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for comments and audit entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now returns the current time.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// AuditStatus is the outcome recorded in an audit entry.
type AuditStatus string

// Audit statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// ActionRead marks audit entries produced by retrieval operations.
const ActionRead domain.Action = "read"

// AuditEntry describes a single service operation.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives an entry for every service operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes the duration and outcome of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is finished with the operation's error, nil on success.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Operation names reported to loggers, recorders and tracers.
const (
	OpListFeatureRequests  = "list_feature_requests"
	OpGetFeatureRequest    = "get_feature_request"
	OpCreateFeatureRequest = "create_feature_request"
	OpUpdateFeatureRequest = "update_feature_request"
	OpDeleteFeatureRequest = "delete_feature_request"
)

type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

var operations = map[string]operationMeta{
	OpListFeatureRequests:  {entity: domain.EntityFeatureRequest, action: ActionRead},
	OpGetFeatureRequest:    {entity: domain.EntityFeatureRequest, action: ActionRead},
	OpCreateFeatureRequest: {entity: domain.EntityFeatureRequest, action: domain.ActionCreate},
	OpUpdateFeatureRequest: {entity: domain.EntityFeatureRequest, action: domain.ActionUpdate},
	OpDeleteFeatureRequest: {entity: domain.EntityFeatureRequest, action: domain.ActionDelete},
}
