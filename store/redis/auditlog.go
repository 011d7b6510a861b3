package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/id"
)

// AppendLog persists a new record.
func (s *Store) AppendLog(ctx context.Context, rec *auditlog.Record) error {
	key := entityKey(prefixLogRecord, rec.ID.String())
	if err := s.setEntity(ctx, key, rec); err != nil {
		return fmt.Errorf("conduit/redis: append log: %w", err)
	}
	return s.rdb.ZAdd(ctx, zLogAll, goredis.Z{
		Score:  scoreFromTime(rec.CreatedAt),
		Member: rec.ID.String(),
	}).Err()
}

// GetLog returns a record by ID.
func (s *Store) GetLog(ctx context.Context, recID id.ID) (*auditlog.Record, error) {
	var rec auditlog.Record
	if err := s.getEntity(ctx, entityKey(prefixLogRecord, recID.String()), &rec); err != nil {
		if isRedisNil(err) {
			return nil, conduit.ErrLogRecordNotFound
		}
		return nil, fmt.Errorf("conduit/redis: get log: %w", err)
	}
	return &rec, nil
}

// QueryLogs returns records matching opts, newest first.
func (s *Store) QueryLogs(ctx context.Context, opts auditlog.QueryOpts) ([]*auditlog.Record, error) {
	ids, err := s.rdb.ZRange(ctx, zLogAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: query logs: %w", err)
	}

	result := make([]*auditlog.Record, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // reverse for DESC order
		var rec auditlog.Record
		if err := s.getEntity(ctx, entityKey(prefixLogRecord, ids[i]), &rec); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if !matchLogOpts(&rec, opts) {
			continue
		}
		result = append(result, &rec)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// DeleteLog removes a record.
func (s *Store) DeleteLog(ctx context.Context, recID id.ID) error {
	deleted, err := s.rdb.Del(ctx, entityKey(prefixLogRecord, recID.String())).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: delete log: %w", err)
	}
	if deleted == 0 {
		return conduit.ErrLogRecordNotFound
	}
	return s.rdb.ZRem(ctx, zLogAll, recID.String()).Err()
}

// PurgeLogsOlderThan removes records created before cutoff.
func (s *Store) PurgeLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	threshold := scoreString(scoreFromTime(cutoff))
	ids, err := s.rdb.ZRangeByScore(ctx, zLogAll, &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + threshold,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("conduit/redis: purge logs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.rdb.Pipeline()
	for _, recID := range ids {
		pipe.Del(ctx, entityKey(prefixLogRecord, recID))
		pipe.ZRem(ctx, zLogAll, recID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("conduit/redis: purge logs: %w", err)
	}
	return int64(len(ids)), nil
}

// CountLogs returns the total number of records.
func (s *Store) CountLogs(ctx context.Context) (int64, error) {
	count, err := s.rdb.ZCard(ctx, zLogAll).Result()
	if err != nil {
		return 0, fmt.Errorf("conduit/redis: count logs: %w", err)
	}
	return count, nil
}

func matchLogOpts(rec *auditlog.Record, opts auditlog.QueryOpts) bool {
	if opts.SubjectID != nil && rec.SubjectID.String() != opts.SubjectID.String() {
		return false
	}
	if opts.Category != "" && rec.Category != opts.Category {
		return false
	}
	if opts.Status != "" && rec.Status != opts.Status {
		return false
	}
	if opts.Since != nil && rec.CreatedAt.Before(*opts.Since) {
		return false
	}
	return true
}
