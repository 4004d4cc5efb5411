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

type SQLUserRepository struct {
	db *gorm.DB
}

func NewSQLUserRepository(db *gorm.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

var _ ports.UserRepository = (*SQLUserRepository)(nil)

func (r *SQLUserRepository) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &domain.User{
		ID:          domain.UserID(rec.ID),
		DisplayName: rec.DisplayName,
		Disabled:    rec.Disabled,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

func (r *SQLUserRepository) SaveUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	rec := &userRecord{
		ID:          string(user.ID),
		DisplayName: user.DisplayName,
		Disabled:    user.Disabled,
		CreatedAt:   user.CreatedAt,
	}

	// created_at keeps the first write.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "disabled"}),
		}).
		Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
