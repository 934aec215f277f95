package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
)

// Repository loads platform identities. Users are written upstream by the
// Telegram mini-app layer; the core only reads them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	FindUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "telegram_id = ?", telegramID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
