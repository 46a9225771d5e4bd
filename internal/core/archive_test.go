package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"featureboard/internal/blob"
	"featureboard/internal/idgen"
	memblob "featureboard/internal/infra/blob/memory"
	"featureboard/internal/infra/persistence/memory"
	"featureboard/pkg/domain"
)

func TestArchiveExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := memblob.New()
	fixed := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	src := newTestService(t, WithCommentIDGenerator(idgen.NewSequence("cmt-", 1)))
	if _, err := SeedDefaults(ctx, src.Store()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := src.Update(ctx, "req-005", Patch{Comment: strPtr("I love this idea")}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := src.Delete(ctx, "req-002"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	exporter := NewArchiver(src.Store(), blobs, WithArchiveClock(ClockFunc(func() time.Time { return fixed })))
	info, err := exporter.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if info.Key != "archives/20240304T050607.000000000Z.json" || info.Metadata["records"] != "4" {
		t.Fatalf("unexpected archive info %+v", info)
	}
	if _, err := exporter.Export(ctx); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected second export at the same instant to collide, got %v", err)
	}

	list, err := exporter.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v %v", list, err)
	}

	dst := memory.NewStore(domain.NewDefaultRulesEngine())
	restorer := NewArchiver(dst, blobs)
	n, err := restorer.Restore(ctx, info.Key)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 restored records, got %d", n)
	}
	want, _ := src.List(ctx)
	got, _ := dst.FindAll(ctx)
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Title != want[i].Title || len(got[i].Comments) != len(want[i].Comments) {
			t.Fatalf("record %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
	last := got[len(got)-1]
	if last.ID != "req-005" || last.Comments[0].Content != "I love this idea" || last.Comments[0].FeatureRequestID != "req-005" {
		t.Fatalf("expected comment restored on req-005, got %+v", last)
	}

	if _, err := restorer.Restore(ctx, info.Key); !errors.Is(err, ErrStoreNotEmpty) {
		t.Fatalf("expected restore into populated store to fail, got %v", err)
	}
}

func TestArchiveRestoreErrors(t *testing.T) {
	ctx := context.Background()
	blobs := memblob.New()

	a := NewArchiver(createOnlyStore{Store: memory.NewStore(nil)}, blobs)
	if _, err := a.Restore(ctx, "archives/x.json"); !errors.Is(err, ErrImportUnsupported) {
		t.Fatalf("expected import unsupported, got %v", err)
	}

	a = NewArchiver(memory.NewStore(nil), blobs)
	if _, err := a.Restore(ctx, "archives/missing.json"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected missing archive, got %v", err)
	}

	if _, err := blobs.Put(ctx, "archives/v2.json", strings.NewReader(`{"version":2,"requests":[]}`), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := a.Restore(ctx, "archives/v2.json"); err == nil || !strings.Contains(err.Error(), "unsupported version") {
		t.Fatalf("expected version error, got %v", err)
	}

	bad := `{"version":1,"requests":[{"id":"req-1","title":"Bad","status":"archived","priority":"p1","comments":[]}]}`
	if _, err := blobs.Put(ctx, "archives/bad.json", strings.NewReader(bad), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	rules := NewArchiver(memory.NewStore(domain.NewDefaultRulesEngine()), blobs)
	if _, err := rules.Restore(ctx, "archives/bad.json"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected rules engine to reject invalid archive, got %v", err)
	}

	if _, err := blobs.Put(ctx, "archives/notes.txt", strings.NewReader("x"), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	list, _ := a.List(ctx)
	for _, info := range list {
		if !strings.HasSuffix(info.Key, ".json") {
			t.Fatalf("list should skip non-archive blobs, got %s", info.Key)
		}
	}
}

func TestArchiveRestoreFailureLeavesStoreEmpty(t *testing.T) {
	ctx := context.Background()
	blobs := memblob.New()
	path := filepath.Join(t.TempDir(), "board.db")
	opts := StorageOptions{Driver: StorageSQLite, SQLitePath: path}

	const doc = `{"version":1,"requests":[` +
		`{"id":"req-001","title":"Advanced search","description":"","status":"planned","priority":"p1","comments":[]},` +
		`{"id":"req-002","title":"Dark mode","description":"","status":"%s","priority":"p3","comments":[]}]}`
	put := func(key, status string) {
		t.Helper()
		body := strings.Replace(doc, "%s", status, 1)
		if _, err := blobs.Put(ctx, key, strings.NewReader(body), blob.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	put("archives/bad.json", "archived")
	put("archives/good.json", "shipped")

	store, err := OpenStore(ctx, opts, domain.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	a := NewArchiver(store, blobs)
	if _, err := a.Restore(ctx, "archives/bad.json"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if all, _ := store.FindAll(ctx); len(all) != 0 {
		t.Fatalf("failed restore left %d records", len(all))
	}
	if err := CloseStore(store); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenStore(ctx, opts, domain.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = CloseStore(reopened) })
	if all, _ := reopened.FindAll(ctx); len(all) != 0 {
		t.Fatalf("failed restore persisted %d rows", len(all))
	}
	n, err := NewArchiver(reopened, blobs).Restore(ctx, "archives/good.json")
	if err != nil || n != 2 {
		t.Fatalf("corrected restore: n=%d err=%v", n, err)
	}
	if all, _ := reopened.FindAll(ctx); len(all) != 2 || all[1].Status != domain.StatusShipped {
		t.Fatalf("unexpected restored board %+v", all)
	}
}
