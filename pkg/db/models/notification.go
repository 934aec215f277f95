package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// Notification stores the mini-app inbox payloads scoped to users.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"type:uuid;not null"`
	Type        enums.NotificationType `gorm:"type:notification_type;not null"`
	Title       string                 `gorm:"type:text;not null"`
	Message     string                 `gorm:"type:text;not null"`
	Data        json.RawMessage        `gorm:"type:jsonb"`
	ReadAt      *time.Time             `gorm:"type:timestamptz"`
	CreatedAt   time.Time              `gorm:"type:timestamptz;default:now()"`
}
