package sql

import (
	"encoding/json"
	"fmt"
	"time"

	"vodgate/internal/core/domain"
)

// contentRecord stores the expiration map as a JSON document in the same
// wire form the document store uses.
type contentRecord struct {
	Kind         string `gorm:"primaryKey;size:32"`
	ID           string `gorm:"primaryKey;size:128"`
	Status       string `gorm:"size:32;not null"`
	RequiredRole string `gorm:"size:32;not null"`
	ExpiredAt    string `gorm:"type:text;not null"`
	PublishedAt  time.Time
	UpdatedAt    time.Time
}

func (contentRecord) TableName() string { return "contents" }

type credentialRecord struct {
	Kind      string `gorm:"primaryKey;size:32"`
	ContentID string `gorm:"primaryKey;size:128"`
	URL       string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (credentialRecord) TableName() string { return "delivery_credentials" }

type userRecord struct {
	ID          string `gorm:"primaryKey;size:128"`
	DisplayName string `gorm:"size:255"`
	Disabled    bool   `gorm:"not null"`
	CreatedAt   time.Time
}

func (userRecord) TableName() string { return "users" }

func toContentRecord(item *domain.ContentItem) (*contentRecord, error) {
	expiredAt, err := json.Marshal(item.ExpiredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal expiredAt: %w", err)
	}
	return &contentRecord{
		Kind:         string(item.Kind),
		ID:           string(item.ID),
		Status:       string(item.Status),
		RequiredRole: string(item.RequiredRole),
		ExpiredAt:    string(expiredAt),
		PublishedAt:  item.PublishedAt.UTC(),
	}, nil
}

func (r *contentRecord) toDomain() (*domain.ContentItem, error) {
	var expiredAt domain.ExpirationMap
	if err := json.Unmarshal([]byte(r.ExpiredAt), &expiredAt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal expiredAt of %s: %w", r.ID, err)
	}
	return &domain.ContentItem{
		ID:           domain.ContentID(r.ID),
		Kind:         domain.ContentKind(r.Kind),
		Status:       domain.ContentStatus(r.Status),
		RequiredRole: domain.Role(r.RequiredRole),
		ExpiredAt:    expiredAt,
		PublishedAt:  r.PublishedAt.UTC(),
	}, nil
}
