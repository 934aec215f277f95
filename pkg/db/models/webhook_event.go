package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// WebhookEvent is the audit row written for every inbound gateway call,
// before processing starts, and updated with the outcome and latency.
type WebhookEvent struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider     string              `gorm:"column:provider;not null"`
	EventType    string              `gorm:"column:event_type;not null"`
	TxRef        string              `gorm:"column:tx_ref;not null"`
	Payload      json.RawMessage     `gorm:"column:payload;type:jsonb;not null"`
	Result       enums.WebhookResult `gorm:"column:result;type:webhook_result;not null;default:'received'"`
	Error        *string             `gorm:"column:error"`
	ProcessingMS int64               `gorm:"column:processing_ms;not null;default:0"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
