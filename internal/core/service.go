// Package core implements the feature request service: submission,
// curation, deletion and retrieval on top of a domain.Store, together with
// its observability hooks, storage selection, seed data and archives.
package core

import (
	"context"
	"errors"
	"time"

	"featureboard/internal/idgen"
	"featureboard/internal/infra/persistence/memory"
	"featureboard/pkg/domain"
)

const defaultCommentPrefix = "cmt-"

// Service validates caller input and orchestrates store operations.
type Service struct {
	store      domain.Store
	logger     Logger
	clock      Clock
	commentIDs idgen.Generator
	audit      AuditRecorder
	metrics    MetricsRecorder
	tracer     Tracer
}

// ServiceOption configures optional service behaviour.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for comments and audit entries.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCommentIDGenerator overrides the generator used for comment ids.
func WithCommentIDGenerator(gen idgen.Generator) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.commentIDs = gen
		}
	}
}

// WithAuditRecorder registers an audit recorder.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder registers a metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer registers a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		logger:     noopLogger{},
		clock:      systemClock{},
		commentIDs: idgen.NanoID(defaultCommentPrefix),
		audit:      noopAuditRecorder{},
		metrics:    noopMetricsRecorder{},
		tracer:     noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh memory store.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying store.
func (s *Service) Store() domain.Store {
	return s.store
}

// List returns every feature request in insertion order.
func (s *Service) List(ctx context.Context) ([]domain.FeatureRequest, error) {
	var out []domain.FeatureRequest
	err := s.run(ctx, OpListFeatureRequests, "", func(ctx context.Context) error {
		var err error
		out, err = s.store.FindAll(ctx)
		return err
	})
	return out, err
}

// Get returns the feature request stored under id. Absence is reported
// through the boolean, not as an error.
func (s *Service) Get(ctx context.Context, id string) (domain.FeatureRequest, bool, error) {
	var (
		out   domain.FeatureRequest
		found bool
	)
	err := s.run(ctx, OpGetFeatureRequest, id, func(ctx context.Context) error {
		var err error
		out, found, err = s.store.FindByID(ctx, id)
		return err
	})
	return out, found, err
}

// Create validates a submission strictly and stores it. Every field is
// required; any failure is reported as a domain.ValidationError and nothing
// is stored.
func (s *Service) Create(ctx context.Context, sub Submission) (domain.FeatureRequest, error) {
	var created domain.FeatureRequest
	err := s.run(ctx, OpCreateFeatureRequest, "", func(ctx context.Context) error {
		fields, err := validateSubmission(sub)
		if err != nil {
			return err
		}
		created, err = s.store.Create(ctx, fields)
		return err
	}, func() string { return created.ID })
	return created, err
}

// Update curates an existing request. Invalid fields are dropped rather than
// rejected; a non-empty comment is appended in the same store mutation.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (domain.FeatureRequest, error) {
	var updated domain.FeatureRequest
	err := s.run(ctx, OpUpdateFeatureRequest, id, func(ctx context.Context) error {
		c := curate(patch)
		if len(c.dropped) > 0 {
			s.logger.Debug("dropped invalid patch fields", "id", id, "fields", c.dropped)
		}
		var commentID string
		var createdAt time.Time
		if c.comment != nil {
			commentID = s.commentIDs.NewID()
			createdAt = s.clock.Now().UTC()
		}
		rec, found, err := s.store.Update(ctx, id, func(r *domain.FeatureRequest) error {
			c.apply(r)
			if c.comment != nil {
				r.Comments = append(r.Comments, domain.Comment{
					ID:               commentID,
					FeatureRequestID: r.ID,
					Content:          *c.comment,
					CreatedAt:        createdAt,
				})
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrNotFound{Entity: domain.EntityFeatureRequest, ID: id}
		}
		updated = rec
		return nil
	})
	return updated, err
}

// Delete removes the request stored under id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.run(ctx, OpDeleteFeatureRequest, id, func(ctx context.Context) error {
		removed, err := s.store.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			return domain.ErrNotFound{Entity: domain.EntityFeatureRequest, ID: id}
		}
		return nil
	})
}

// run wraps fn with tracing, metrics, audit and logging. entityID may be
// resolved after fn completes through resolveID.
func (s *Service) run(ctx context.Context, op, entityID string, fn func(context.Context) error, resolveID ...func() string) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	if err == nil && len(resolveID) > 0 {
		entityID = resolveID[0]()
	}
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.recordAuditError(ctx, op, entityID, duration, err)
		s.logFailure(op, entityID, err)
		return err
	}
	s.recordAuditSuccess(ctx, op, entityID, duration)
	s.logger.Debug("operation completed", "operation", op, "id", entityID, "duration", duration)
	return nil
}

func (s *Service) logFailure(op, entityID string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFoundSentinel):
		s.logger.Warn("operation rejected", "operation", op, "id", entityID, "error", err)
	default:
		s.logger.Error("operation failed", "operation", op, "id", entityID, "error", err)
	}
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, AuditStatusSuccess, "", duration)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, AuditStatusError, err.Error(), duration)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, status AuditStatus, msg string, duration time.Duration) {
	meta, ok := operations[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    status,
		Error:     msg,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

