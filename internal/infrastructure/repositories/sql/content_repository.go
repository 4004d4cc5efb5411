package sql

import (
	"context"
	"errors"
	"fmt"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLContentRepository struct {
	db *gorm.DB
}

func NewSQLContentRepository(db *gorm.DB) *SQLContentRepository {
	return &SQLContentRepository{db: db}
}

var (
	_ ports.ContentRepository = (*SQLContentRepository)(nil)
	_ ports.HealthChecker     = (*SQLContentRepository)(nil)
)

func (r *SQLContentRepository) GetContent(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.ContentItem, error) {
	var rec contentRecord
	err := r.db.WithContext(ctx).
		Where("kind = ? AND id = ?", string(kind), string(id)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query content: %w", err)
	}
	return rec.toDomain()
}

func (r *SQLContentRepository) GetCredential(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.DeliveryCredential, error) {
	var rec credentialRecord
	err := r.db.WithContext(ctx).
		Where("kind = ? AND content_id = ?", string(kind), string(id)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	return &domain.DeliveryCredential{
		ContentID: domain.ContentID(rec.ContentID),
		Kind:      domain.ContentKind(rec.Kind),
		URL:       rec.URL,
	}, nil
}

func (r *SQLContentRepository) SaveContent(ctx context.Context, item *domain.ContentItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	rec, err := toContentRecord(item)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save content: %w", err)
	}
	return nil
}

func (r *SQLContentRepository) SaveCredential(ctx context.Context, cred *domain.DeliveryCredential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	rec := &credentialRecord{
		Kind:      string(cred.Kind),
		ContentID: string(cred.ContentID),
		URL:       cred.URL,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (r *SQLContentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
