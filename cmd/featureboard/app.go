package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"featureboard/internal/blob"
	"featureboard/internal/config"
	"featureboard/internal/core"
	"featureboard/internal/logging"
	"featureboard/pkg/domain"
)

// app holds the resources shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	store  domain.Store
	closer []io.Closer
}

func openApp(ctx context.Context, configPath string, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: stderr})
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		logger.Debug("config loaded", "file", cfg.File)
	}
	store, err := core.OpenStore(ctx, cfg.StorageOptions(), domain.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("store opened", "driver", cfg.Storage.Driver)
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) blobs(ctx context.Context) (blob.Store, error) {
	store, err := blob.Open(ctx, a.cfg.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return store, nil
}

func (a *app) archiver(ctx context.Context) (*core.Archiver, error) {
	blobs, err := a.blobs(ctx)
	if err != nil {
		return nil, err
	}
	return core.NewArchiver(a.store, blobs, core.WithArchiveLogger(a.logger.With("component", "archive"))), nil
}

// tracer opens the configured span sink; nil when tracing is disabled.
func (a *app) tracer() (core.Tracer, error) {
	var w io.Writer
	switch out := a.cfg.Trace.Output; out {
	case "":
		return nil, nil
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace output: %w", err)
		}
		a.closer = append(a.closer, f)
		w = f
	}
	return core.NewJSONTracer(w), nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closer {
		errs = append(errs, c.Close())
	}
	errs = append(errs, core.CloseStore(a.store))
	return errors.Join(errs...)
}
