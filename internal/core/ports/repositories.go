package ports

import (
	"context"

	"vodgate/internal/core/domain"
)

// ContentRepository is the boundary to the document store holding video
// and livestreaming records and their delivery credentials.
type ContentRepository interface {
	GetContent(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.ContentItem, error)
	GetCredential(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.DeliveryCredential, error)
	SaveContent(ctx context.Context, item *domain.ContentItem) error
	SaveCredential(ctx context.Context, cred *domain.DeliveryCredential) error
}

type UserRepository interface {
	GetUser(ctx context.Context, id domain.UserID) (*domain.User, error)
	SaveUser(ctx context.Context, user *domain.User) error
}

// HealthChecker is implemented by stores that can report connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
