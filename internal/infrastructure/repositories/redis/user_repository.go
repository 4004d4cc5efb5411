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

type RedisUserRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisUserRepository(client *redis.Client) *RedisUserRepository {
	return &RedisUserRepository{
		client: client,
		prefix: keyPrefix + "user:",
	}
}

var _ ports.UserRepository = (*RedisUserRepository)(nil)

func (r *RedisUserRepository) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	data, err := r.client.Get(ctx, r.prefix+string(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Redis: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (r *RedisUserRepository) SaveUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+string(user.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set user in Redis: %w", err)
	}
	return nil
}
