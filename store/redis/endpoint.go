package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/id"
)

// CreateEndpoint persists a new definition.
func (s *Store) CreateEndpoint(ctx context.Context, def *endpoint.Definition) error {
	key := entityKey(prefixEndpoint, def.ID.String())
	if err := s.setEntity(ctx, key, def); err != nil {
		return fmt.Errorf("conduit/redis: create endpoint: %w", err)
	}
	return s.rdb.ZAdd(ctx, zEndpointAll, goredis.Z{
		Score:  scoreFromTime(def.CreatedAt),
		Member: def.ID.String(),
	}).Err()
}

// GetEndpoint returns a definition by ID.
func (s *Store) GetEndpoint(ctx context.Context, defID id.ID) (*endpoint.Definition, error) {
	var def endpoint.Definition
	if err := s.getEntity(ctx, entityKey(prefixEndpoint, defID.String()), &def); err != nil {
		if isRedisNil(err) {
			return nil, conduit.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("conduit/redis: get endpoint: %w", err)
	}
	return &def, nil
}

// UpdateEndpoint modifies an existing definition.
func (s *Store) UpdateEndpoint(ctx context.Context, def *endpoint.Definition) error {
	key := entityKey(prefixEndpoint, def.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: update endpoint: %w", err)
	}
	if exists == 0 {
		return conduit.ErrEndpointNotFound
	}
	def.UpdatedAt = now()
	return s.setEntity(ctx, key, def)
}

// DeleteEndpoint removes a definition.
func (s *Store) DeleteEndpoint(ctx context.Context, defID id.ID) error {
	key := entityKey(prefixEndpoint, defID.String())
	deleted, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: delete endpoint: %w", err)
	}
	if deleted == 0 {
		return conduit.ErrEndpointNotFound
	}
	return s.rdb.ZRem(ctx, zEndpointAll, defID.String()).Err()
}

// ListEndpoints returns definitions, optionally filtered.
func (s *Store) ListEndpoints(ctx context.Context, opts endpoint.ListOpts) ([]*endpoint.Definition, error) {
	defs, err := s.listEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*endpoint.Definition, 0, len(defs))
	for _, def := range defs {
		if opts.Namespace != "" && def.Namespace != opts.Namespace {
			continue
		}
		if opts.Status != "" && def.Status != opts.Status {
			continue
		}
		result = append(result, def)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ListActiveEndpoints returns every registrable definition.
func (s *Store) ListActiveEndpoints(ctx context.Context) ([]*endpoint.Definition, error) {
	defs, err := s.listEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*endpoint.Definition, 0, len(defs))
	for _, def := range defs {
		if def.Status.Registrable() {
			result = append(result, def)
		}
	}
	return result, nil
}

// SetEndpointStatus changes a definition's lifecycle state.
func (s *Store) SetEndpointStatus(ctx context.Context, defID id.ID, status endpoint.Status) error {
	def, err := s.GetEndpoint(ctx, defID)
	if err != nil {
		return err
	}
	def.Status = status
	return s.UpdateEndpoint(ctx, def)
}

func (s *Store) listEndpoints(ctx context.Context) ([]*endpoint.Definition, error) {
	ids, err := s.rdb.ZRange(ctx, zEndpointAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: list endpoints: %w", err)
	}

	result := make([]*endpoint.Definition, 0, len(ids))
	for _, defID := range ids {
		var def endpoint.Definition
		if err := s.getEntity(ctx, entityKey(prefixEndpoint, defID), &def); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		result = append(result, &def)
	}
	return result, nil
}
