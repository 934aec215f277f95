package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// OrderStatusEvent is one entry in the append-only status history. Rows are
// inserted alongside the transition they record and never updated.
type OrderStatusEvent struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:order_status;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:order_status;not null"`
	Actor      enums.ActorRole   `gorm:"column:actor;type:actor_role;not null"`
	ActorID    *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
