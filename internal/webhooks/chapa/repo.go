package chapawebhook

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// Repository persists the inbound-webhook audit trail. Audit rows are
// written outside the settlement transaction on purpose: a failed
// settlement must still leave a record of the delivery.
type Repository interface {
	Insert(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error)
	MarkResult(ctx context.Context, id uuid.UUID, result enums.WebhookResult, errMsg *string, processingMS int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *repository) MarkResult(ctx context.Context, id uuid.UUID, result enums.WebhookResult, errMsg *string, processingMS int64) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"result":        result,
			"error":         errMsg,
			"processing_ms": processingMS,
		}).Error
}
