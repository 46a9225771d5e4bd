package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"featureboard/pkg/domain"
)

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	ended []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type logLine struct {
	level string
	msg   string
	kv    []any
}

type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (c *captureLogger) add(level, msg string, kv []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, logLine{level: level, msg: msg, kv: kv})
}

func (c *captureLogger) Debug(msg string, kv ...any) { c.add("debug", msg, kv) }
func (c *captureLogger) Info(msg string, kv ...any)  { c.add("info", msg, kv) }
func (c *captureLogger) Warn(msg string, kv ...any)  { c.add("warn", msg, kv) }
func (c *captureLogger) Error(msg string, kv ...any) { c.add("error", msg, kv) }

func (c *captureLogger) has(level, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if l.level == level && l.msg == msg {
			return true
		}
	}
	return false
}

func TestServiceObservability(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}
	fixed := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)

	svc := newTestService(t,
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(logger),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)

	created, err := svc.Create(ctx, darkMode())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !audit.has(OpCreateFeatureRequest, AuditStatusSuccess, func(e AuditEntry) bool {
		return e.EntityID == created.ID && e.Action == domain.ActionCreate && e.Entity == domain.EntityFeatureRequest && e.Timestamp.Equal(fixed)
	}) {
		t.Fatalf("expected audit entry for create with the new id, got %+v", audit.entries)
	}
	if _, err := svc.Update(ctx, created.ID, Patch{Status: strPtr("bogus")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !logger.has("debug", "dropped invalid patch fields") {
		t.Fatalf("expected dropped fields to be logged")
	}
	if _, _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := svc.Delete(ctx, "missing"); err == nil {
		t.Fatalf("expected delete of missing id to fail")
	}
	if _, err := svc.Create(ctx, Submission{}); err == nil {
		t.Fatalf("expected invalid create to fail")
	}

	for _, op := range []string{OpCreateFeatureRequest, OpUpdateFeatureRequest, OpGetFeatureRequest, OpListFeatureRequests} {
		if !metrics.has(op, true) || !tracer.has(op, true) {
			t.Fatalf("expected successful metrics and span for %s", op)
		}
		if !audit.has(op, AuditStatusSuccess, nil) {
			t.Fatalf("expected audit success for %s", op)
		}
	}
	if !audit.has(OpDeleteFeatureRequest, AuditStatusError, func(e AuditEntry) bool { return e.EntityID == "missing" && e.Error != "" }) {
		t.Fatalf("expected audit error entry for delete")
	}
	if !metrics.has(OpDeleteFeatureRequest, false) || !tracer.has(OpDeleteFeatureRequest, false) {
		t.Fatalf("expected failed delete to reach metrics and tracer")
	}
	if !audit.has(OpCreateFeatureRequest, AuditStatusError, nil) || !logger.has("warn", "operation rejected") {
		t.Fatalf("expected rejected create to be audited and logged as warning")
	}
	if logger.has("error", "operation failed") {
		t.Fatalf("validation and not found faults must not log at error level")
	}
}

func TestRecordAuditIgnoresUnknownOperation(t *testing.T) {
	audit := &captureAuditRecorder{}
	svc := newTestService(t, WithAuditRecorder(audit))
	svc.recordAuditSuccess(context.Background(), "unknown_operation", "id", time.Second)
	if len(audit.entries) != 0 {
		t.Fatalf("expected no audit entries, got %d", len(audit.entries))
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	svc := newTestService(t, WithLogger(nil), WithClock(nil), WithAuditRecorder(nil), WithMetricsRecorder(nil), WithTracer(nil), WithCommentIDGenerator(nil))
	if _, ok := svc.logger.(noopLogger); !ok {
		t.Fatalf("expected noop logger")
	}
	if _, ok := svc.tracer.(noopTracer); !ok {
		t.Fatalf("expected noop tracer")
	}
	if svc.commentIDs == nil || svc.clock == nil || svc.audit == nil || svc.metrics == nil {
		t.Fatalf("expected defaults to remain")
	}
	noopLogger{}.Info("ignored", "k", "v")
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, OpCreateFeatureRequest, true, 5*time.Millisecond)
	rec.Observe(ctx, OpCreateFeatureRequest, true, 7*time.Millisecond)
	rec.Observe(ctx, OpCreateFeatureRequest, false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues(OpCreateFeatureRequest, "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues(OpCreateFeatureRequest, "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestJSONTraceTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), OpGetFeatureRequest)
	span.End(nil)
	_, span = tracer.Start(context.Background(), OpDeleteFeatureRequest)
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "success" || entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two json lines, got %q", buf.String())
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil || decoded.Operation != OpDeleteFeatureRequest {
		t.Fatalf("unexpected encoded span %q: %v", lines[1], err)
	}

	silent := NewJSONTracer(nil)
	_, span = silent.Start(context.Background(), OpListFeatureRequests)
	span.End(nil)
	if len(silent.Entries()) != 1 {
		t.Fatalf("expected nil-writer tracer to retain spans")
	}
}
