// Package redis provides a feature request store persisted to Redis. Each
// request is a JSON value in a hash; a sorted set keeps insertion order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"featureboard/internal/infra/persistence/memory"
	"featureboard/pkg/domain"
)

var _ domain.Store = (*Store)(nil)

const (
	// DefaultURL is used when no connection URL is configured.
	DefaultURL = "redis://localhost:6379/0"
	// DefaultKeyPrefix namespaces every key written by the store.
	DefaultKeyPrefix = "featureboard"
)

// Store wraps the memory store and mirrors every mutation into Redis.
type Store struct {
	*memory.Store
	client *goredis.Client
	keys   keys
	owned  bool
}

type keys struct {
	requests string
	order    string
}

func newKeys(prefix string) keys {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return keys{requests: prefix + ":requests", order: prefix + ":order"}
}

// NewStore connects to url and hydrates memory from the keys under prefix.
func NewStore(ctx context.Context, url, prefix string, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if url == "" {
		url = DefaultURL
	}
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)
	store, err := NewStoreWithClient(ctx, client, prefix, engine, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// NewStoreWithClient builds a store over an existing client. The caller
// keeps ownership of client.
func NewStoreWithClient(ctx context.Context, client *goredis.Client, prefix string, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	j := &journal{client: client, keys: newKeys(prefix)}
	records, err := j.load(ctx)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine, append(opts, memory.WithJournal(j))...)
	mem.ImportState(records)
	return &Store{Store: mem, client: client, keys: j.keys}, nil
}

// Client exposes the underlying redis client.
func (s *Store) Client() *goredis.Client { return s.client }

// Close releases the client when the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

type journal struct {
	client *goredis.Client
	keys   keys
	seq    float64
}

func (j *journal) load(ctx context.Context) ([]domain.FeatureRequest, error) {
	ordered, err := j.client.ZRangeWithScores(ctx, j.keys.order, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.keys.order, err)
	}
	if len(ordered) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(ordered))
	for _, z := range ordered {
		id, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member %v in %s", z.Member, j.keys.order)
		}
		ids = append(ids, id)
		if z.Score >= j.seq {
			j.seq = z.Score + 1
		}
	}
	payloads, err := j.client.HMGet(ctx, j.keys.requests, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.keys.requests, err)
	}
	out := make([]domain.FeatureRequest, 0, len(ids))
	for i, raw := range payloads {
		s, ok := raw.(string)
		if !ok {
			// order entry without a payload; skip the orphan
			continue
		}
		var r domain.FeatureRequest
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("decode feature request %s: %w", ids[i], err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (j *journal) Apply(ctx context.Context, change domain.Change) error {
	switch change.Action {
	case domain.ActionCreate, domain.ActionUpdate:
		payload, err := json.Marshal(change.After)
		if err != nil {
			return err
		}
		id := change.After.ID
		_, err = j.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, j.keys.requests, id, payload)
			if change.Action == domain.ActionCreate {
				pipe.ZAdd(ctx, j.keys.order, goredis.Z{Score: j.seq, Member: id})
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", id, err)
		}
		if change.Action == domain.ActionCreate {
			j.seq++
		}
	case domain.ActionDelete:
		id := change.Before.ID
		_, err := j.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HDel(ctx, j.keys.requests, id)
			pipe.ZRem(ctx, j.keys.order, id)
			return nil
		})
		if err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	default:
		return fmt.Errorf("unsupported action %q", change.Action)
	}
	return nil
}

func (j *journal) Truncate(ctx context.Context) error {
	if err := j.client.Del(ctx, j.keys.requests, j.keys.order).Err(); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	j.seq = 0
	return nil
}
