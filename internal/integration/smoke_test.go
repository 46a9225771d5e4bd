package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"featureboard/internal/blob"
	"featureboard/internal/core"
	"featureboard/internal/httpapi"
	"featureboard/internal/idgen"
	"featureboard/pkg/domain"
)

// TestIntegrationSmoke runs a write/read/archive cycle over HTTP for each
// in-process storage and blob driver.
func TestIntegrationSmoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	storeVariants := []struct {
		name string
		opts func(t *testing.T) core.StorageOptions
	}{
		{name: "memory-store", opts: func(*testing.T) core.StorageOptions {
			return core.StorageOptions{Driver: core.StorageMemory}
		}},
		{name: "sqlite-store", opts: func(t *testing.T) core.StorageOptions {
			return core.StorageOptions{
				Driver:     core.StorageSQLite,
				SQLitePath: filepath.Join(t.TempDir(), "board.db"),
				IDScheme:   idgen.SchemeSequence,
			}
		}},
	}
	blobVariants := []struct {
		name string
		cfg  func(t *testing.T) blob.Config
	}{
		{name: "memory-blob", cfg: func(*testing.T) blob.Config { return blob.Config{Driver: blob.DriverMemory} }},
		{name: "filesystem-blob", cfg: func(t *testing.T) blob.Config {
			return blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()}
		}},
	}

	for _, sv := range storeVariants {
		for _, bv := range blobVariants {
			t.Run(sv.name+"/"+bv.name, func(t *testing.T) {
				store, err := core.OpenStore(ctx, sv.opts(t), domain.NewDefaultRulesEngine())
				if err != nil {
					t.Fatalf("open store: %v", err)
				}
				t.Cleanup(func() { _ = core.CloseStore(store) })

				var traces bytes.Buffer
				tracer := core.NewJSONTracer(&traces)
				router := httpapi.NewRouter(core.NewService(store, core.WithTracer(tracer)), httpapi.Options{})

				created := call[domain.FeatureRequest](t, router, http.MethodPost, "/api/feature-requests", http.StatusCreated,
					`{"title":"Bulk export","description":"Export every request as CSV","status":"proposed","priority":"p2"}`)
				call[domain.FeatureRequest](t, router, http.MethodPut, "/api/feature-requests/"+created.ID, http.StatusOK,
					`{"status":"in_progress","comment":"Picked up this sprint"}`)
				got := call[domain.FeatureRequest](t, router, http.MethodGet, "/api/feature-requests/"+created.ID, http.StatusOK, "")
				if got.Status != domain.StatusInProgress || len(got.Comments) != 1 || got.Comments[0].FeatureRequestID != created.ID {
					t.Fatalf("unexpected record after update: %+v", got)
				}

				blobs, err := blob.Open(ctx, bv.cfg(t))
				if err != nil {
					t.Fatalf("open blob: %v", err)
				}
				archiver := core.NewArchiver(store, blobs)
				info, err := archiver.Export(ctx)
				if err != nil {
					t.Fatalf("export: %v", err)
				}

				fresh, err := core.OpenStore(ctx, core.StorageOptions{Driver: core.StorageMemory}, domain.NewDefaultRulesEngine())
				if err != nil {
					t.Fatalf("open fresh store: %v", err)
				}
				n, err := core.NewArchiver(fresh, blobs).Restore(ctx, info.Key)
				if err != nil || n != 1 {
					t.Fatalf("restore: n=%d err=%v", n, err)
				}
				restored, ok, err := fresh.FindByID(ctx, created.ID)
				if err != nil || !ok || len(restored.Comments) != 1 || restored.Comments[0].Content != "Picked up this sprint" {
					t.Fatalf("restored record mismatch: %+v ok=%v err=%v", restored, ok, err)
				}

				call[map[string]string](t, router, http.MethodDelete, "/api/feature-requests/"+created.ID, http.StatusOK, "")
				call[map[string]string](t, router, http.MethodGet, "/api/feature-requests/"+created.ID, http.StatusNotFound, "")

				var sawCreate bool
				for _, entry := range tracer.Entries() {
					if entry.Operation == core.OpCreateFeatureRequest && entry.Status == "success" {
						sawCreate = true
					}
				}
				if !sawCreate || !strings.Contains(traces.String(), core.OpDeleteFeatureRequest) {
					t.Fatalf("expected create and delete spans, got %s", traces.String())
				}
			})
		}
	}
}

func call[T any](t *testing.T, h http.Handler, method, path string, want int, body string) T {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != want {
		t.Fatalf("%s %s: expected %d, got %d %s", method, path, want, rec.Code, rec.Body.String())
	}
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}
