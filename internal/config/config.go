// Package config loads featureboard settings from defaults, an optional
// YAML file and FEATUREBOARD_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"featureboard/internal/blob"
	"featureboard/internal/core"
	"featureboard/internal/idgen"
)

// EnvPrefix prefixes every environment override, e.g. FEATUREBOARD_STORAGE_DRIVER.
const EnvPrefix = "FEATUREBOARD"

// Config is the resolved application configuration.
type Config struct {
	Server  Server
	Log     Log
	Storage Storage
	Blob    Blob
	Trace   Trace
	Seed    bool
	// File is the config file that was read, empty when none.
	File string
}

// Server configures the HTTP listener.
type Server struct {
	Addr            string
	CORSOrigins     []string
	Metrics         bool
	ShutdownTimeout time.Duration
}

// Log configures the logger.
type Log struct {
	Level  string
	Format string
}

// Storage configures the feature request store.
type Storage struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
	RedisURL    string
	RedisPrefix string
	IDScheme    string
}

// Blob configures the archive blob store.
type Blob struct {
	Driver string
	FSRoot string
	S3     S3
}

// S3 configures the S3 blob driver.
type S3 struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Trace configures the JSON span writer. An empty Output disables tracing;
// "stdout" and "stderr" name the standard streams, anything else is a file path.
type Trace struct {
	Output string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("storage.driver", string(core.StorageMemory))
	v.SetDefault("storage.sqlite_path", "featureboard.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.redis_prefix", "featureboard")
	v.SetDefault("storage.id_scheme", string(idgen.SchemeNanoID))
	v.SetDefault("blob.driver", string(blob.DriverFilesystem))
	v.SetDefault("blob.fs_root", "./blobdata")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("blob.s3.session_token", "")
	v.SetDefault("trace.output", "")
	v.SetDefault("seed", true)
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. When path is empty, a featureboard.yaml in the
// working directory is used if present; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("featureboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper resolves a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			CORSOrigins:     splitList(v.GetStringSlice("server.cors_origins")),
			Metrics:         v.GetBool("server.metrics"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Storage: Storage{
			Driver:      strings.ToLower(v.GetString("storage.driver")),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			RedisURL:    v.GetString("storage.redis_url"),
			RedisPrefix: v.GetString("storage.redis_prefix"),
			IDScheme:    strings.ToLower(v.GetString("storage.id_scheme")),
		},
		Blob: Blob{
			Driver: strings.ToLower(v.GetString("blob.driver")),
			FSRoot: v.GetString("blob.fs_root"),
			S3: S3{
				Bucket:          v.GetString("blob.s3.bucket"),
				Region:          v.GetString("blob.s3.region"),
				Endpoint:        v.GetString("blob.s3.endpoint"),
				PathStyle:       v.GetBool("blob.s3.path_style"),
				AccessKeyID:     v.GetString("blob.s3.access_key_id"),
				SecretAccessKey: v.GetString("blob.s3.secret_access_key"),
				SessionToken:    v.GetString("blob.s3.session_token"),
			},
		},
		Trace: Trace{Output: v.GetString("trace.output")},
		Seed:  v.GetBool("seed"),
		File:  v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres, core.StorageRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch idgen.Scheme(c.Storage.IDScheme) {
	case idgen.SchemeNanoID, idgen.SchemeUUID, idgen.SchemeSequence:
	default:
		return fmt.Errorf("unknown id scheme %q", c.Storage.IDScheme)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	return nil
}

// StorageOptions maps the storage section onto core.StorageOptions.
func (c *Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:         core.StorageDriver(c.Storage.Driver),
		SQLitePath:     c.Storage.SQLitePath,
		PostgresDSN:    c.Storage.PostgresDSN,
		RedisURL:       c.Storage.RedisURL,
		RedisKeyPrefix: c.Storage.RedisPrefix,
		IDScheme:       idgen.Scheme(c.Storage.IDScheme),
	}
}

// BlobConfig maps the blob section onto blob.Config.
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			PathStyle:       c.Blob.S3.PathStyle,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			SessionToken:    c.Blob.S3.SessionToken,
		},
	}
}

// splitList flattens comma separated entries, as produced by environment
// variables such as FEATUREBOARD_SERVER_CORS_ORIGINS=a,b.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
