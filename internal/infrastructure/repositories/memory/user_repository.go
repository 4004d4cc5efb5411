package memory

import (
	"context"
	"fmt"
	"sync"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/ports"
)

type MemoryUserRepository struct {
	users map[domain.UserID]*domain.User
	mu    sync.RWMutex
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[domain.UserID]*domain.User),
	}
}

var _ ports.UserRepository = (*MemoryUserRepository)(nil)

func (r *MemoryUserRepository) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (r *MemoryUserRepository) SaveUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u := *user
	r.users[user.ID] = &u
	return nil
}
