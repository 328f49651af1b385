package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	pkgerrors "github.com/pkg/errors"
)

// Record is a finished response kept for replay.
type Record struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

const pendingMarker = "pending"

type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Begin claims key. It reports false when another request already holds it.
func (s *Store) Begin(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, pendingMarker, s.ttl).Result()
	if err != nil {
		return false, pkgerrors.Wrap(err, "claim idempotency key")
	}
	return ok, nil
}

// Load returns the stored response. done is false while the first request
// is still in flight.
func (s *Store) Load(ctx context.Context, key string) (rec Record, done bool, err error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, pkgerrors.Wrap(err, "load idempotency key")
	}
	if string(raw) == pendingMarker {
		return Record{}, false, nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, pkgerrors.Wrap(err, "decode idempotency record")
	}
	return rec, true, nil
}

func (s *Store) Complete(ctx context.Context, key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.Wrap(err, "encode idempotency record")
	}
	return pkgerrors.Wrap(s.rdb.Set(ctx, key, raw, s.ttl).Err(), "store idempotency record")
}

// Abandon frees key so the request can be retried.
func (s *Store) Abandon(ctx context.Context, key string) error {
	return pkgerrors.Wrap(s.rdb.Del(ctx, key).Err(), "release idempotency key")
}

func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, pkgerrors.Wrap(err, "redis ping")
	}
	return rdb, nil
}
