package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/dispatch"
	"github.com/xraph/conduit/id"
)

// dispatchModel is the JSON representation stored in Redis. The signing
// secret is excluded from the public JSON shape, so it is persisted
// explicitly.
type dispatchModel struct {
	dispatch.Webhook
	Secret string `json:"secret"`
}

func toDispatchModel(wh *dispatch.Webhook) *dispatchModel {
	return &dispatchModel{Webhook: *wh, Secret: wh.Secret}
}

func (m *dispatchModel) webhook() *dispatch.Webhook {
	wh := m.Webhook
	wh.Secret = m.Secret
	return &wh
}

// CreateDispatchWebhook persists a new webhook.
func (s *Store) CreateDispatchWebhook(ctx context.Context, wh *dispatch.Webhook) error {
	key := entityKey(prefixDispatch, wh.ID.String())
	if err := s.setEntity(ctx, key, toDispatchModel(wh)); err != nil {
		return fmt.Errorf("conduit/redis: create dispatch webhook: %w", err)
	}
	return s.rdb.ZAdd(ctx, zDispatchAll, goredis.Z{
		Score:  scoreFromTime(wh.CreatedAt),
		Member: wh.ID.String(),
	}).Err()
}

// GetDispatchWebhook returns a webhook by ID.
func (s *Store) GetDispatchWebhook(ctx context.Context, whID id.ID) (*dispatch.Webhook, error) {
	var m dispatchModel
	if err := s.getEntity(ctx, entityKey(prefixDispatch, whID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, conduit.ErrDispatchWebhookNotFound
		}
		return nil, fmt.Errorf("conduit/redis: get dispatch webhook: %w", err)
	}
	return m.webhook(), nil
}

// UpdateDispatchWebhook modifies an existing webhook.
func (s *Store) UpdateDispatchWebhook(ctx context.Context, wh *dispatch.Webhook) error {
	key := entityKey(prefixDispatch, wh.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: update dispatch webhook: %w", err)
	}
	if exists == 0 {
		return conduit.ErrDispatchWebhookNotFound
	}
	wh.UpdatedAt = now()
	return s.setEntity(ctx, key, toDispatchModel(wh))
}

// DeleteDispatchWebhook removes a webhook.
func (s *Store) DeleteDispatchWebhook(ctx context.Context, whID id.ID) error {
	deleted, err := s.rdb.Del(ctx, entityKey(prefixDispatch, whID.String())).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: delete dispatch webhook: %w", err)
	}
	if deleted == 0 {
		return conduit.ErrDispatchWebhookNotFound
	}
	return s.rdb.ZRem(ctx, zDispatchAll, whID.String()).Err()
}

// ListDispatchWebhooks returns all webhooks.
func (s *Store) ListDispatchWebhooks(ctx context.Context) ([]*dispatch.Webhook, error) {
	return s.listDispatch(ctx, func(*dispatch.Webhook) bool { return true })
}

// ListDispatchWebhooksByEvent returns active webhooks triggered by event.
func (s *Store) ListDispatchWebhooksByEvent(ctx context.Context, event string) ([]*dispatch.Webhook, error) {
	return s.listDispatch(ctx, func(wh *dispatch.Webhook) bool {
		return wh.Firing() && wh.TriggeredBy(event)
	})
}

func (s *Store) listDispatch(ctx context.Context, keep func(*dispatch.Webhook) bool) ([]*dispatch.Webhook, error) {
	ids, err := s.rdb.ZRange(ctx, zDispatchAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: list dispatch webhooks: %w", err)
	}

	result := make([]*dispatch.Webhook, 0, len(ids))
	for _, whID := range ids {
		var m dispatchModel
		if err := s.getEntity(ctx, entityKey(prefixDispatch, whID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		wh := m.webhook()
		if keep(wh) {
			result = append(result, wh)
		}
	}
	return result, nil
}
