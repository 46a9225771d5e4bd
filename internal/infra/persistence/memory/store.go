// Package memory provides the reference in-memory implementation of the
// feature request store. Durable drivers wrap it and mirror each committed
// mutation through a Journal.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"featureboard/internal/idgen"
	"featureboard/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.Store    = (*Store)(nil)
	_ domain.Importer = (*Store)(nil)
)

const (
	defaultIDPrefix   = "req-"
	maxCreateAttempts = 8
)

// ErrIDExhausted is returned when the generator keeps producing ids that are already taken.
var ErrIDExhausted = errors.New("could not allocate an unused feature request id")

// Journal receives every mutation while the store lock is held, before the
// mutation becomes visible. An error aborts the mutation.
type Journal interface {
	Apply(ctx context.Context, change domain.Change) error
	Truncate(ctx context.Context) error
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the generator used to assign request ids.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Store) {
		if gen != nil {
			s.ids = gen
		}
	}
}

// WithJournal registers a journal mirroring committed mutations.
func WithJournal(j Journal) Option {
	return func(s *Store) {
		if j != nil {
			s.journal = j
		}
	}
}

// Store keeps feature requests in a map guarded by a single RWMutex. Records
// are cloned on the way in and out so callers never share state with the store.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.FeatureRequest
	order   []string
	engine  *domain.RulesEngine
	ids     idgen.Generator
	journal Journal
}

// NewStore constructs an empty store evaluating engine on every mutation.
// A nil engine enforces nothing beyond the store contract itself.
func NewStore(engine *domain.RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		records: make(map[string]domain.FeatureRequest),
		engine:  engine,
		ids:     idgen.NanoID(defaultIDPrefix),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	return s.engine
}

// FindAll returns every record in insertion order.
func (s *Store) FindAll(_ context.Context) ([]domain.FeatureRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FeatureRequest, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

// FindByID returns the record stored under id.
func (s *Store) FindByID(_ context.Context, id string) (domain.FeatureRequest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return domain.FeatureRequest{}, false, nil
	}
	return r.Clone(), true, nil
}

// Create stores a new record under a freshly generated id.
func (s *Store) Create(ctx context.Context, fields domain.FeatureRequestFields) (domain.FeatureRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.allocateID()
	if err != nil {
		return domain.FeatureRequest{}, err
	}
	r := domain.FeatureRequest{
		ID:          id,
		Title:       fields.Title,
		Description: fields.Description,
		Status:      fields.Status,
		Priority:    fields.Priority,
		Comments:    []domain.Comment{},
	}
	if r.Status == "" {
		r.Status = domain.DefaultStatus
	}
	if r.Priority == "" {
		r.Priority = domain.DefaultPriority
	}
	if err := s.commit(ctx, domain.Change{Entity: domain.EntityFeatureRequest, Action: domain.ActionCreate, After: &r}); err != nil {
		return domain.FeatureRequest{}, err
	}
	return r.Clone(), nil
}

func (s *Store) allocateID() (string, error) {
	for i := 0; i < maxCreateAttempts; i++ {
		id := s.ids.NewID()
		if id == "" {
			continue
		}
		if _, exists := s.records[id]; !exists {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Update applies mutator to a copy of the record and commits the result.
func (s *Store) Update(ctx context.Context, id string, mutator func(*domain.FeatureRequest) error) (domain.FeatureRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return domain.FeatureRequest{}, false, nil
	}
	before := current.Clone()
	after := current.Clone()
	if mutator != nil {
		if err := mutator(&after); err != nil {
			return domain.FeatureRequest{}, true, err
		}
	}
	after.ID = id
	after = after.Clone()
	if err := s.commit(ctx, domain.Change{Entity: domain.EntityFeatureRequest, Action: domain.ActionUpdate, Before: &before, After: &after}); err != nil {
		return domain.FeatureRequest{}, true, err
	}
	return after.Clone(), true, nil
}

// Delete removes the record stored under id.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return false, nil
	}
	before := current.Clone()
	if err := s.commit(ctx, domain.Change{Entity: domain.EntityFeatureRequest, Action: domain.ActionDelete, Before: &before}); err != nil {
		return false, err
	}
	return true, nil
}

// Reset clears every record.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		if err := s.journal.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate journal: %w", err)
		}
	}
	s.records = make(map[string]domain.FeatureRequest)
	s.order = nil
	return nil
}

// Import inserts complete records, keeping their ids and comments. The whole
// batch is checked before anything is written; a journal failure part way
// through removes the records already imported.
func (s *Store) Import(ctx context.Context, records []domain.FeatureRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]domain.FeatureRequest, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("import: record without id")
		}
		if _, dup := seen[rec.ID]; dup {
			return fmt.Errorf("import: feature request %q appears twice", rec.ID)
		}
		seen[rec.ID] = struct{}{}
		if _, exists := s.records[rec.ID]; exists {
			return fmt.Errorf("import: feature request %q already exists", rec.ID)
		}
		r := rec.Clone()
		res, err := s.engine.Evaluate(ctx, createChange(&r))
		if err != nil {
			return fmt.Errorf("import %q: %w", rec.ID, err)
		}
		if res.HasViolations() {
			return fmt.Errorf("import %q: %w", rec.ID, domain.RuleViolationError{Result: res})
		}
		batch = append(batch, r)
	}

	for i := range batch {
		if err := s.commit(ctx, createChange(&batch[i])); err != nil {
			s.rollbackImport(ctx, batch[:i])
			return fmt.Errorf("import %q: %w", batch[i].ID, err)
		}
	}
	for _, r := range batch {
		s.observe(r.ID)
	}
	return nil
}

func createChange(r *domain.FeatureRequest) domain.Change {
	return domain.Change{Entity: domain.EntityFeatureRequest, Action: domain.ActionCreate, After: r}
}

// rollbackImport removes imported records newest first. Callers hold s.mu.
func (s *Store) rollbackImport(ctx context.Context, imported []domain.FeatureRequest) {
	for i := len(imported) - 1; i >= 0; i-- {
		r := imported[i]
		_ = s.commit(ctx, domain.Change{Entity: domain.EntityFeatureRequest, Action: domain.ActionDelete, Before: &r})
	}
}

// ExportState returns a copy of every record in insertion order.
func (s *Store) ExportState() []domain.FeatureRequest {
	out, _ := s.FindAll(context.Background())
	return out
}

// ImportState replaces the store contents with records without consulting
// the rules engine or the journal. Durable drivers use it to hydrate from
// their own rows.
func (s *Store) ImportState(records []domain.FeatureRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]domain.FeatureRequest, len(records))
	s.order = make([]string, 0, len(records))
	for _, rec := range records {
		if _, dup := s.records[rec.ID]; !dup {
			s.order = append(s.order, rec.ID)
		}
		s.records[rec.ID] = rec.Clone()
		s.observe(rec.ID)
	}
}

func (s *Store) observe(id string) {
	if o, ok := s.ids.(idgen.Observer); ok {
		o.Observe(id)
	}
}

// commit evaluates rules, journals and applies a change. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, change domain.Change) error {
	res, err := s.engine.Evaluate(ctx, change)
	if err != nil {
		return err
	}
	if res.HasViolations() {
		return domain.RuleViolationError{Result: res}
	}
	if s.journal != nil {
		if err := s.journal.Apply(ctx, change); err != nil {
			return fmt.Errorf("journal %s %q: %w", change.Action, change.RecordID(), err)
		}
	}
	switch change.Action {
	case domain.ActionCreate:
		s.records[change.After.ID] = change.After.Clone()
		s.order = append(s.order, change.After.ID)
	case domain.ActionUpdate:
		s.records[change.After.ID] = change.After.Clone()
	case domain.ActionDelete:
		id := change.Before.ID
		delete(s.records, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}
