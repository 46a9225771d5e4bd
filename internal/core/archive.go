package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"featureboard/internal/blob"
	"featureboard/pkg/domain"
)

const (
	// ArchiveVersion is the document version written by Export.
	ArchiveVersion = 1
	// ArchivePrefix is the blob key prefix under which archives are stored.
	ArchivePrefix = "archives/"

	archiveTimeLayout = "20060102T150405.000000000Z"
)

var (
	// ErrStoreNotEmpty is returned when restoring into a store holding records.
	ErrStoreNotEmpty = errors.New("restore requires an empty store")
	// ErrImportUnsupported is returned when the store cannot import complete records.
	ErrImportUnsupported = errors.New("store does not support importing records")
)

// Archive is the JSON document written for a board export.
type Archive struct {
	Version    int                     `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Requests   []domain.FeatureRequest `json:"requests"`
}

// Archiver exports the board to a blob store and restores it from there.
type Archiver struct {
	store  domain.Store
	blobs  blob.Store
	clock  Clock
	logger Logger
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithArchiveClock overrides the time source used for archive keys.
func WithArchiveClock(clock Clock) ArchiverOption {
	return func(a *Archiver) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithArchiveLogger sets the archiver logger.
func WithArchiveLogger(logger Logger) ArchiverOption {
	return func(a *Archiver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewArchiver constructs an archiver over store and blobs.
func NewArchiver(store domain.Store, blobs blob.Store, opts ...ArchiverOption) *Archiver {
	a := &Archiver{store: store, blobs: blobs, clock: systemClock{}, logger: noopLogger{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Export writes every record to a new archive blob.
func (a *Archiver) Export(ctx context.Context) (blob.Info, error) {
	records, err := a.store.FindAll(ctx)
	if err != nil {
		return blob.Info{}, fmt.Errorf("export: list: %w", err)
	}
	now := a.clock.Now().UTC()
	doc := Archive{Version: ArchiveVersion, ExportedAt: now, Requests: records}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("export: encode: %w", err)
	}
	key := ArchivePrefix + now.Format(archiveTimeLayout) + ".json"
	info, err := a.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"records": strconv.Itoa(len(records))},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("export: write %s: %w", key, err)
	}
	a.logger.Info("board exported", "key", key, "records", len(records), "driver", a.blobs.Driver())
	return info, nil
}

// List returns the stored archives, oldest first.
func (a *Archiver) List(ctx context.Context) ([]blob.Info, error) {
	infos, err := a.blobs.List(ctx, ArchivePrefix)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	out := infos[:0]
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".json") {
			out = append(out, info)
		}
	}
	return out, nil
}

// Load reads and decodes the archive stored under key.
func (a *Archiver) Load(ctx context.Context, key string) (Archive, error) {
	_, rc, err := a.blobs.Get(ctx, key)
	if err != nil {
		return Archive{}, fmt.Errorf("load %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	var doc Archive
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return Archive{}, fmt.Errorf("decode %s: %w", key, err)
	}
	if doc.Version != ArchiveVersion {
		return Archive{}, fmt.Errorf("archive %s has unsupported version %d", key, doc.Version)
	}
	return doc, nil
}

// Restore imports the archive stored under key into an empty store, keeping
// ids, comments and order.
func (a *Archiver) Restore(ctx context.Context, key string) (int, error) {
	importer, ok := a.store.(domain.Importer)
	if !ok {
		return 0, ErrImportUnsupported
	}
	existing, err := a.store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore: list: %w", err)
	}
	if len(existing) > 0 {
		return 0, fmt.Errorf("%w: %d records present", ErrStoreNotEmpty, len(existing))
	}
	doc, err := a.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := importer.Import(ctx, doc.Requests); err != nil {
		return 0, fmt.Errorf("restore %s: %w", key, err)
	}
	a.logger.Info("board restored", "key", key, "records", len(doc.Requests))
	return len(doc.Requests), nil
}
