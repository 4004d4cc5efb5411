package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "vodgate:"
	namespacesKey = keyPrefix + "namespaces"
)

type RedisContentRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisContentRepository(client *redis.Client) *RedisContentRepository {
	return &RedisContentRepository{
		client: client,
		prefix: keyPrefix,
	}
}

var (
	_ ports.ContentRepository = (*RedisContentRepository)(nil)
	_ ports.HealthChecker     = (*RedisContentRepository)(nil)
)

// contentKey is vodgate:<kind>:<id>; videos and livestreamings never share
// a key even with equal ids.
func (r *RedisContentRepository) contentKey(kind domain.ContentKind, id domain.ContentID) string {
	return r.prefix + string(kind) + ":" + string(id)
}

func (r *RedisContentRepository) credentialKey(kind domain.ContentKind, id domain.ContentID) string {
	return r.contentKey(kind, id) + ":credential"
}

func (r *RedisContentRepository) GetContent(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.ContentItem, error) {
	data, err := r.client.Get(ctx, r.contentKey(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content from Redis: %w", err)
	}

	var item domain.ContentItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %w", err)
	}
	return &item, nil
}

func (r *RedisContentRepository) GetCredential(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.DeliveryCredential, error) {
	data, err := r.client.Get(ctx, r.credentialKey(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential from Redis: %w", err)
	}

	var cred domain.DeliveryCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &cred, nil
}

func (r *RedisContentRepository) SaveContent(ctx context.Context, item *domain.ContentItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}
	if err := r.client.Set(ctx, r.contentKey(item.Kind, item.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set content in Redis: %w", err)
	}
	return nil
}

func (r *RedisContentRepository) SaveCredential(ctx context.Context, cred *domain.DeliveryCredential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := r.client.Set(ctx, r.credentialKey(cred.Kind, cred.ContentID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set credential in Redis: %w", err)
	}
	return nil
}

func (r *RedisContentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
