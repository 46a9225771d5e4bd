// Package sqljournal mirrors memory store mutations into a single SQL table,
// one row per feature request. The sqlite and postgres drivers share it and
// differ only in their Dialect.
package sqljournal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"featureboard/pkg/domain"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name        string
	PayloadType string
	Placeholder func(n int) string
}

// SQLite uses `?` placeholders and stores payloads as BLOB.
var SQLite = Dialect{
	Name:        "sqlite",
	PayloadType: "BLOB",
	Placeholder: func(int) string { return "?" },
}

// Postgres uses numbered placeholders and JSONB payloads.
var Postgres = Dialect{
	Name:        "postgres",
	PayloadType: "JSONB",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
}

// Table is the name of the table holding one row per feature request.
const Table = "feature_requests"

// Journal writes each change as a single-row statement. It is called under
// the memory store lock, so seq needs no synchronisation of its own.
type Journal struct {
	db      *sql.DB
	dialect Dialect
	seq     int64
}

// New returns a journal over db. Call EnsureSchema and Load before use.
func New(db *sql.DB, dialect Dialect) *Journal {
	return &Journal{db: db, dialect: dialect}
}

// EnsureSchema creates the backing table when missing.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		seq BIGINT NOT NULL,
		payload %s NOT NULL
	)`, Table, j.dialect.PayloadType)
	if _, err := j.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure %s table: %w", Table, err)
	}
	return nil
}

// Load reads every stored request in insertion order and primes the sequence.
func (j *Journal) Load(ctx context.Context) ([]domain.FeatureRequest, error) {
	rows, err := j.db.QueryContext(ctx, fmt.Sprintf(`SELECT seq, payload FROM %s ORDER BY seq`, Table))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", Table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.FeatureRequest
	for rows.Next() {
		var (
			seq     int64
			payload []byte
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", Table, err)
		}
		var r domain.FeatureRequest
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode feature request: %w", err)
		}
		out = append(out, r)
		if seq >= j.seq {
			j.seq = seq + 1
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", Table, err)
	}
	return out, nil
}

// Apply writes a single change.
func (j *Journal) Apply(ctx context.Context, change domain.Change) error {
	p := j.dialect.Placeholder
	switch change.Action {
	case domain.ActionCreate:
		payload, err := json.Marshal(change.After)
		if err != nil {
			return err
		}
		q := fmt.Sprintf(`INSERT INTO %s (id, seq, payload) VALUES (%s, %s, %s)`, Table, p(1), p(2), p(3))
		if _, err := j.db.ExecContext(ctx, q, change.After.ID, j.seq, payload); err != nil {
			return fmt.Errorf("insert %s: %w", change.After.ID, err)
		}
		j.seq++
	case domain.ActionUpdate:
		payload, err := json.Marshal(change.After)
		if err != nil {
			return err
		}
		q := fmt.Sprintf(`UPDATE %s SET payload = %s WHERE id = %s`, Table, p(1), p(2))
		res, err := j.db.ExecContext(ctx, q, payload, change.After.ID)
		if err != nil {
			return fmt.Errorf("update %s: %w", change.After.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update %s: %w", change.After.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("update %s: no stored row", change.After.ID)
		}
	case domain.ActionDelete:
		q := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, Table, p(1))
		if _, err := j.db.ExecContext(ctx, q, change.Before.ID); err != nil {
			return fmt.Errorf("delete %s: %w", change.Before.ID, err)
		}
	default:
		return fmt.Errorf("unsupported action %q", change.Action)
	}
	return nil
}

// Truncate removes every row.
func (j *Journal) Truncate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, Table)); err != nil {
		return fmt.Errorf("truncate %s: %w", Table, err)
	}
	j.seq = 0
	return nil
}
