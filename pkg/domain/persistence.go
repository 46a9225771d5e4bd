package domain

import "context"

// Store is the keyed storage contract for feature requests. Every driver
// (memory, sqlite, postgres, redis) satisfies it with identical semantics.
// Errors are infrastructure faults only; "not found" is reported through the
// boolean results.
type Store interface {
	// FindAll returns every record in insertion order.
	FindAll(ctx context.Context) ([]FeatureRequest, error)
	// FindByID returns the record with the exact id.
	FindByID(ctx context.Context, id string) (FeatureRequest, bool, error)
	// Create assigns a fresh id, starts with no comments and inserts the record.
	Create(ctx context.Context, fields FeatureRequestFields) (FeatureRequest, error)
	// Update applies mutator to a private copy of the record and commits it.
	// The record id is restored after the mutator runs. Returns false when absent.
	Update(ctx context.Context, id string, mutator func(*FeatureRequest) error) (FeatureRequest, bool, error)
	// Delete removes the record, reporting whether one existed.
	Delete(ctx context.Context, id string) (bool, error)
	// Reset clears all records.
	Reset(ctx context.Context) error
}

// Importer is implemented by stores that can load complete records, ids and
// comments included, e.g. when restoring an archive.
type Importer interface {
	Import(ctx context.Context, records []FeatureRequest) error
}
