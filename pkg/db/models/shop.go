package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// Shop holds the merchant's escrow balance. The balance moves only through
// order completion credits and admin adjustments, each paired with a
// ShopTransaction row.
type Shop struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID       `gorm:"column:owner_user_id;type:uuid;not null"`
	Name        string          `gorm:"column:name;not null"`
	City        enums.City      `gorm:"column:city;type:city;not null"`
	Balance     decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
