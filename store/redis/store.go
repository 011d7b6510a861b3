// Package redis provides a Redis-backed Store implementation.
//
// Entities are stored as JSON values under typed key prefixes, with
// sorted set indexes for listing and the dispatch queue. Queue leasing
// is a Lua script that removes claimed members from the pending set
// atomically.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit"
	conduitstore "github.com/xraph/conduit/store"
)

// compile-time interface check
var _ conduitstore.Store = (*Store)(nil)

// Store implements store.Store on a Redis client.
type Store struct {
	rdb goredis.UniversalClient
}

// New creates a new Redis store.
func New(client goredis.UniversalClient) *Store {
	return &Store{rdb: client}
}

// Migrate verifies connectivity and preloads the queue lease script.
// Redis needs no schema changes beyond that.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", conduit.ErrMigrationFailed, err)
	}
	if err := dequeueScript.Load(ctx, s.rdb).Err(); err != nil {
		return fmt.Errorf("%w: %w", conduit.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// scoreFromTime converts a time.Time to a sorted set score (unix seconds as float64).
func scoreFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// isRedisNil checks if an error is a Redis nil (key not found).
func isRedisNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}

// getEntity retrieves and decodes a JSON entity from a key.
func (s *Store) getEntity(ctx context.Context, key string, dest any) error {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// setEntity encodes and stores a JSON entity under a key.
func (s *Store) setEntity(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("conduit/redis: marshal entity: %w", err)
	}
	return s.rdb.Set(ctx, key, raw, 0).Err()
}

// scoreString formats a sorted set score for ZRANGEBYSCORE bounds.
func scoreString(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// applyPagination applies offset and limit to a slice.
func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
