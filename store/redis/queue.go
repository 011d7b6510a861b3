package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/dispatch"
	"github.com/xraph/conduit/id"
)

// dequeueScript atomically claims due queue items from the pending
// sorted set. Claimed members are removed so no other worker sees them
// until UpdateQueueItem re-adds still-pending items.
// KEYS[1] = conduit:z:qi:pending
// ARGV[1] = score threshold (unix seconds)
// ARGV[2] = limit
var dequeueScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids == 0 then return {} end
for i, id in ipairs(ids) do
    redis.call('ZREM', KEYS[1], id)
end
return ids
`)

// Enqueue persists a new queue item.
func (s *Store) Enqueue(ctx context.Context, item *dispatch.Item) error {
	key := entityKey(prefixQueueItem, item.ID.String())
	if err := s.setEntity(ctx, key, item); err != nil {
		return fmt.Errorf("conduit/redis: enqueue: %w", err)
	}
	return s.rdb.ZAdd(ctx, zQueuePending, goredis.Z{
		Score:  scoreFromTime(item.NextAttemptAt),
		Member: item.ID.String(),
	}).Err()
}

// DequeueDue leases up to limit pending items due at deadline.
func (s *Store) DequeueDue(ctx context.Context, deadline time.Time, limit int) ([]*dispatch.Item, error) {
	threshold := scoreString(scoreFromTime(deadline))
	claimed, err := dequeueScript.Run(ctx, s.rdb, []string{zQueuePending}, threshold, limit).StringSlice()
	if err != nil {
		if isRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("conduit/redis: dequeue script: %w", err)
	}
	if len(claimed) == 0 {
		return nil, nil
	}

	items := make([]*dispatch.Item, 0, len(claimed))
	for _, itemID := range claimed {
		var item dispatch.Item
		if err := s.getEntity(ctx, entityKey(prefixQueueItem, itemID), &item); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, fmt.Errorf("conduit/redis: dequeue get: %w", err)
		}
		items = append(items, &item)
	}
	return items, nil
}

// GetQueueItem returns a queue item by ID.
func (s *Store) GetQueueItem(ctx context.Context, itemID id.ID) (*dispatch.Item, error) {
	var item dispatch.Item
	if err := s.getEntity(ctx, entityKey(prefixQueueItem, itemID.String()), &item); err != nil {
		if isRedisNil(err) {
			return nil, conduit.ErrQueueItemNotFound
		}
		return nil, fmt.Errorf("conduit/redis: get queue item: %w", err)
	}
	return &item, nil
}

// UpdateQueueItem persists an item's state after an attempt. Items
// still pending return to the sorted set scored by their next attempt.
func (s *Store) UpdateQueueItem(ctx context.Context, item *dispatch.Item) error {
	item.UpdatedAt = now()
	key := entityKey(prefixQueueItem, item.ID.String())
	if err := s.setEntity(ctx, key, item); err != nil {
		return fmt.Errorf("conduit/redis: update queue item: %w", err)
	}

	if item.State == dispatch.StatePending {
		return s.rdb.ZAdd(ctx, zQueuePending, goredis.Z{
			Score:  scoreFromTime(item.NextAttemptAt),
			Member: item.ID.String(),
		}).Err()
	}
	return nil
}

// PendingQueueCount returns the number of items awaiting attempt.
func (s *Store) PendingQueueCount(ctx context.Context) (int64, error) {
	count, err := s.rdb.ZCard(ctx, zQueuePending).Result()
	if err != nil {
		return 0, fmt.Errorf("conduit/redis: pending count: %w", err)
	}
	return count, nil
}
