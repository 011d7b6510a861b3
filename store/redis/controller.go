package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/controller"
	"github.com/xraph/conduit/id"
)

// CreateController persists a new controller.
func (s *Store) CreateController(ctx context.Context, ctl *controller.Controller) error {
	key := entityKey(prefixController, ctl.ID.String())
	if err := s.setEntity(ctx, key, ctl); err != nil {
		return fmt.Errorf("conduit/redis: create controller: %w", err)
	}
	return s.rdb.ZAdd(ctx, zControllerAll, goredis.Z{
		Score:  scoreFromTime(ctl.CreatedAt),
		Member: ctl.ID.String(),
	}).Err()
}

// GetController returns a controller by ID.
func (s *Store) GetController(ctx context.Context, ctlID id.ID) (*controller.Controller, error) {
	var ctl controller.Controller
	if err := s.getEntity(ctx, entityKey(prefixController, ctlID.String()), &ctl); err != nil {
		if isRedisNil(err) {
			return nil, conduit.ErrControllerNotFound
		}
		return nil, fmt.Errorf("conduit/redis: get controller: %w", err)
	}
	return &ctl, nil
}

// UpdateController modifies an existing controller.
func (s *Store) UpdateController(ctx context.Context, ctl *controller.Controller) error {
	key := entityKey(prefixController, ctl.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: update controller: %w", err)
	}
	if exists == 0 {
		return conduit.ErrControllerNotFound
	}
	ctl.UpdatedAt = now()
	return s.setEntity(ctx, key, ctl)
}

// DeleteController removes a controller.
func (s *Store) DeleteController(ctx context.Context, ctlID id.ID) error {
	deleted, err := s.rdb.Del(ctx, entityKey(prefixController, ctlID.String())).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: delete controller: %w", err)
	}
	if deleted == 0 {
		return conduit.ErrControllerNotFound
	}
	return s.rdb.ZRem(ctx, zControllerAll, ctlID.String()).Err()
}

// ListControllers returns all controllers.
func (s *Store) ListControllers(ctx context.Context) ([]*controller.Controller, error) {
	ids, err := s.rdb.ZRange(ctx, zControllerAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: list controllers: %w", err)
	}

	result := make([]*controller.Controller, 0, len(ids))
	for _, ctlID := range ids {
		var ctl controller.Controller
		if err := s.getEntity(ctx, entityKey(prefixController, ctlID), &ctl); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		result = append(result, &ctl)
	}
	return result, nil
}
