package memory

import (
	"context"
	"sync"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/ports"
)

type contentKey struct {
	kind domain.ContentKind
	id   domain.ContentID
}

type MemoryContentRepository struct {
	items       map[contentKey]*domain.ContentItem
	credentials map[contentKey]*domain.DeliveryCredential
	mu          sync.RWMutex
}

func NewMemoryContentRepository() *MemoryContentRepository {
	return &MemoryContentRepository{
		items:       make(map[contentKey]*domain.ContentItem),
		credentials: make(map[contentKey]*domain.DeliveryCredential),
	}
}

var (
	_ ports.ContentRepository = (*MemoryContentRepository)(nil)
	_ ports.HealthChecker     = (*MemoryContentRepository)(nil)
)

func (r *MemoryContentRepository) GetContent(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[contentKey{kind, id}]
	if !exists {
		return nil, domain.ErrContentNotFound
	}
	return cloneItem(item), nil
}

func (r *MemoryContentRepository) GetCredential(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.DeliveryCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, exists := r.credentials[contentKey{kind, id}]
	if !exists {
		return nil, domain.ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

func (r *MemoryContentRepository) SaveContent(ctx context.Context, item *domain.ContentItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[contentKey{item.Kind, item.ID}] = cloneItem(item)
	return nil
}

func (r *MemoryContentRepository) SaveCredential(ctx context.Context, cred *domain.DeliveryCredential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *cred
	r.credentials[contentKey{cred.Kind, cred.ContentID}] = &c
	return nil
}

func (r *MemoryContentRepository) Ping(ctx context.Context) error {
	return nil
}

// cloneItem copies the expiration map so callers cannot mutate stored state.
func cloneItem(item *domain.ContentItem) *domain.ContentItem {
	c := *item
	c.ExpiredAt = make(domain.ExpirationMap, len(item.ExpiredAt))
	for role, t := range item.ExpiredAt {
		if t != nil {
			v := *t
			c.ExpiredAt[role] = &v
		} else {
			c.ExpiredAt[role] = nil
		}
	}
	return &c
}
