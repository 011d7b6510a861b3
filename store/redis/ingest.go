package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/ingest"
)

// ingestModel is the JSON representation stored in Redis. The token is
// excluded from the public JSON shape, so it is persisted explicitly.
type ingestModel struct {
	ingest.Webhook
	Token string `json:"token"`
}

func toIngestModel(wh *ingest.Webhook) *ingestModel {
	return &ingestModel{Webhook: *wh, Token: wh.Token}
}

func (m *ingestModel) webhook() *ingest.Webhook {
	wh := m.Webhook
	wh.Token = m.Token
	return &wh
}

// CreateIngestWebhook persists a new webhook. Slugs are unique.
func (s *Store) CreateIngestWebhook(ctx context.Context, wh *ingest.Webhook) error {
	ok, err := s.rdb.SetNX(ctx, uniqueIngestSlug+wh.Slug, wh.ID.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: create ingest webhook: %w", err)
	}
	if !ok {
		return conduit.ErrDuplicateSlug
	}

	key := entityKey(prefixIngest, wh.ID.String())
	if err := s.setEntity(ctx, key, toIngestModel(wh)); err != nil {
		return fmt.Errorf("conduit/redis: create ingest webhook: %w", err)
	}
	return s.rdb.ZAdd(ctx, zIngestAll, goredis.Z{
		Score:  scoreFromTime(wh.CreatedAt),
		Member: wh.ID.String(),
	}).Err()
}

// GetIngestWebhook returns a webhook by ID.
func (s *Store) GetIngestWebhook(ctx context.Context, whID id.ID) (*ingest.Webhook, error) {
	var m ingestModel
	if err := s.getEntity(ctx, entityKey(prefixIngest, whID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, conduit.ErrIngestWebhookNotFound
		}
		return nil, fmt.Errorf("conduit/redis: get ingest webhook: %w", err)
	}
	return m.webhook(), nil
}

// GetIngestWebhookBySlug returns a webhook by slug.
func (s *Store) GetIngestWebhookBySlug(ctx context.Context, slug string) (*ingest.Webhook, error) {
	whID, err := s.rdb.Get(ctx, uniqueIngestSlug+slug).Result()
	if err != nil {
		if isRedisNil(err) {
			return nil, conduit.ErrIngestWebhookNotFound
		}
		return nil, fmt.Errorf("conduit/redis: get ingest webhook by slug: %w", err)
	}

	parsed, err := id.ParseIngestID(whID)
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: slug index %q: %w", slug, err)
	}
	return s.GetIngestWebhook(ctx, parsed)
}

// UpdateIngestWebhook modifies an existing webhook, keeping the slug
// index consistent.
func (s *Store) UpdateIngestWebhook(ctx context.Context, wh *ingest.Webhook) error {
	prev, err := s.GetIngestWebhook(ctx, wh.ID)
	if err != nil {
		return err
	}

	if prev.Slug != wh.Slug {
		ok, err := s.rdb.SetNX(ctx, uniqueIngestSlug+wh.Slug, wh.ID.String(), 0).Result()
		if err != nil {
			return fmt.Errorf("conduit/redis: update ingest webhook: %w", err)
		}
		if !ok {
			return conduit.ErrDuplicateSlug
		}
		s.rdb.Del(ctx, uniqueIngestSlug+prev.Slug)
	}

	wh.UpdatedAt = now()
	return s.setEntity(ctx, entityKey(prefixIngest, wh.ID.String()), toIngestModel(wh))
}

// DeleteIngestWebhook removes a webhook.
func (s *Store) DeleteIngestWebhook(ctx context.Context, whID id.ID) error {
	wh, err := s.GetIngestWebhook(ctx, whID)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, entityKey(prefixIngest, whID.String()))
	pipe.Del(ctx, uniqueIngestSlug+wh.Slug)
	pipe.ZRem(ctx, zIngestAll, whID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conduit/redis: delete ingest webhook: %w", err)
	}
	return nil
}

// ListIngestWebhooks returns all webhooks.
func (s *Store) ListIngestWebhooks(ctx context.Context) ([]*ingest.Webhook, error) {
	ids, err := s.rdb.ZRange(ctx, zIngestAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: list ingest webhooks: %w", err)
	}

	result := make([]*ingest.Webhook, 0, len(ids))
	for _, whID := range ids {
		var m ingestModel
		if err := s.getEntity(ctx, entityKey(prefixIngest, whID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		result = append(result, m.webhook())
	}
	return result, nil
}
