package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"featureboard/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "blobs")
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Driver() != core.DriverFilesystem || store.Root() != root {
		t.Fatalf("unexpected driver or root")
	}

	payload := []byte(`{"version":1,"requests":[]}`)
	info, err := store.Put(ctx, "archives/2024.json", bytes.NewReader(payload), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"records": "0"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(payload)) || info.ETag == "" || info.Metadata["records"] != "0" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "archives/2024.json", bytes.NewReader(payload), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := store.Get(ctx, "archives/2024.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(body, payload) || got.ETag != info.ETag || got.ContentType != "application/json" {
		t.Fatalf("unexpected get result %+v %q", got, body)
	}

	if _, err := store.Put(ctx, "other/x.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "archives/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "archives/2024.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, _ := store.List(ctx, "")
	if len(all) != 2 || all[0].Key != "archives/2024.json" || all[1].Key != "other/x.json" {
		t.Fatalf("expected sorted keys, got %+v", all)
	}

	removed, err := store.Delete(ctx, "archives/2024.json")
	if err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	if _, err := os.Stat(filepath.Join(root, "archives", "2024.json.meta")); !os.IsNotExist(err) {
		t.Fatalf("expected sidecar removed, got %v", err)
	}
	if removed, err := store.Delete(ctx, "archives/2024.json"); err != nil || removed {
		t.Fatalf("second delete should report false, got %v %v", removed, err)
	}
	if _, err := store.Head(ctx, "archives/2024.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "archives/2024.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape", "a/../../b", "/abs", "x.meta"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
	got, err := sanitizeKey("archives//a.json")
	if err != nil || got != "archives/a.json" {
		t.Fatalf("unexpected clean key %q %v", got, err)
	}
}

func TestNewDefaultsRoot(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()
	store, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Root() != DefaultRoot {
		t.Fatalf("expected default root, got %s", store.Root())
	}
	if _, err := os.Stat(filepath.Join(dir, "blobdata")); err != nil {
		t.Fatalf("expected default root created: %v", err)
	}
}
