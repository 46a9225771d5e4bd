package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"featureboard/internal/blob"
	"featureboard/internal/core"
	"featureboard/internal/idgen"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || !cfg.Server.Metrics || cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors defaults %v", cfg.Server.CORSOrigins)
	}
	if cfg.Storage.Driver != "memory" || cfg.Storage.IDScheme != "nanoid" || !cfg.Seed || cfg.File != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	opts := cfg.StorageOptions()
	if opts.Driver != core.StorageMemory || opts.IDScheme != idgen.SchemeNanoID || opts.RedisKeyPrefix != "featureboard" {
		t.Fatalf("unexpected storage options %+v", opts)
	}
	if bc := cfg.BlobConfig(); bc.Driver != blob.DriverFilesystem || bc.FSRoot != "./blobdata" {
		t.Fatalf("unexpected blob config %+v", bc)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.yaml")
	yaml := `
server:
  addr: ":9090"
  cors_origins: ["https://board.example"]
storage:
  driver: sqlite
  sqlite_path: /tmp/board.db
blob:
  driver: s3
  s3:
    bucket: archives
    path_style: true
seed: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FEATUREBOARD_STORAGE_DRIVER", "postgres")
	t.Setenv("FEATUREBOARD_STORAGE_POSTGRES_DSN", "postgres://db/board")
	t.Setenv("FEATUREBOARD_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.File != path {
		t.Fatalf("expected config file %s, got %s", path, cfg.File)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.CORSOrigins[0] != "https://board.example" || cfg.Seed {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://db/board" || cfg.Log.Format != "json" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Storage.SQLitePath != "/tmp/board.db" {
		t.Fatalf("expected file value kept when env unset, got %s", cfg.Storage.SQLitePath)
	}
	if bc := cfg.BlobConfig(); bc.S3.Bucket != "archives" || !bc.S3.PathStyle {
		t.Fatalf("unexpected s3 config %+v", bc.S3)
	}
}

func TestEnvCORSList(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FEATUREBOARD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing explicit file to fail")
	}
	cases := map[string]string{
		"FEATUREBOARD_STORAGE_DRIVER":    "mongo",
		"FEATUREBOARD_STORAGE_ID_SCHEME": "snowflake",
		"FEATUREBOARD_BLOB_DRIVER":       "ftp",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, value)
			}
		})
	}
	t.Run("s3 without bucket", func(t *testing.T) {
		t.Setenv("FEATUREBOARD_BLOB_DRIVER", "s3")
		if _, err := Load(""); err == nil {
			t.Fatalf("expected missing bucket to be rejected")
		}
	})
}
