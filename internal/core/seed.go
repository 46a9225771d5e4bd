package core

import (
	"context"
	"fmt"

	"featureboard/pkg/domain"
)

// DefaultRequests returns the sample board loaded by SeedDefaults.
func DefaultRequests() []domain.FeatureRequest {
	return []domain.FeatureRequest{
		{
			ID:          "req-001",
			Title:       "Advanced search with filters",
			Description: "Enable users to filter requests by status, priority, and tags for better discovery.",
			Status:      domain.StatusPlanned,
			Priority:    domain.PriorityP1,
			Comments:    []domain.Comment{},
		},
		{
			ID:          "req-002",
			Title:       "Email notifications for status changes",
			Description: "Notify submitters when their request status changes to keep them informed.",
			Status:      domain.StatusUnderReview,
			Priority:    domain.PriorityP2,
			Comments:    []domain.Comment{},
		},
		{
			ID:          "req-003",
			Title:       "Duplicate detection on submission",
			Description: "Suggest similar existing requests when users submit new ideas to reduce duplicates.",
			Status:      domain.StatusProposed,
			Priority:    domain.PriorityP2,
			Comments:    []domain.Comment{},
		},
		{
			ID:          "req-004",
			Title:       "Public roadmap view",
			Description: "Display planned and in-progress features on a public-facing roadmap page.",
			Status:      domain.StatusInProgress,
			Priority:    domain.PriorityP0,
			Comments:    []domain.Comment{},
		},
		{
			ID:          "req-005",
			Title:       "Dark mode toggle",
			Description: "Allow users to switch between light and dark themes for better accessibility.",
			Status:      domain.StatusShipped,
			Priority:    domain.PriorityP3,
			Comments:    []domain.Comment{},
		},
	}
}

// SeedDefaults loads DefaultRequests into store when it is empty and reports
// how many records were written. Stores implementing domain.Importer keep the
// sample ids; others assign fresh ones.
func SeedDefaults(ctx context.Context, store domain.Store) (int, error) {
	existing, err := store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list existing: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	defaults := DefaultRequests()
	if importer, ok := store.(domain.Importer); ok {
		if err := importer.Import(ctx, defaults); err != nil {
			return 0, fmt.Errorf("seed: %w", err)
		}
		return len(defaults), nil
	}
	for i, r := range defaults {
		if _, err := store.Create(ctx, domain.FeatureRequestFields{
			Title:       r.Title,
			Description: r.Description,
			Status:      r.Status,
			Priority:    r.Priority,
		}); err != nil {
			return i, fmt.Errorf("seed %q: %w", r.Title, err)
		}
	}
	return len(defaults), nil
}
