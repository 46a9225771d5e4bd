package core

import (
	"context"
	"errors"
	"testing"

	"featureboard/pkg/domain"
)

func TestSeedDefaults(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	n, err := SeedDefaults(ctx, svc.Store())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected five seeded records, got %d", n)
	}
	all, _ := svc.List(ctx)
	if len(all) != 5 || all[0].ID != "req-001" || all[4].Title != "Dark mode toggle" {
		t.Fatalf("unexpected seeded board %+v", all)
	}
	if all[3].Status != domain.StatusInProgress || all[3].Priority != domain.PriorityP0 {
		t.Fatalf("unexpected roadmap record %+v", all[3])
	}

	n, err = SeedDefaults(ctx, svc.Store())
	if err != nil || n != 0 {
		t.Fatalf("seeding a populated store should be a no-op, got %d %v", n, err)
	}

	// every seeded record must pass submission validation
	for _, r := range DefaultRequests() {
		if _, err := validateSubmission(Submission{Title: r.Title, Description: r.Description, Status: string(r.Status), Priority: string(r.Priority)}); err != nil {
			t.Fatalf("seed %s invalid: %v", r.ID, err)
		}
	}
}

type createOnlyStore struct {
	domain.Store
}

func TestSeedDefaultsWithoutImporter(t *testing.T) {
	ctx := context.Background()
	base := newTestService(t).Store()
	n, err := SeedDefaults(ctx, createOnlyStore{Store: base})
	if err != nil || n != 5 {
		t.Fatalf("seed: %d %v", n, err)
	}
	all, _ := base.FindAll(ctx)
	if all[0].ID != "req-000001" {
		t.Fatalf("expected store generated ids, got %s", all[0].ID)
	}

	boom := errors.New("down")
	if _, err := SeedDefaults(ctx, failingStore{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected list failure, got %v", err)
	}
}
