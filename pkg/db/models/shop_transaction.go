package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// ShopTransaction is an immutable ledger entry created every time a shop
// balance changes. BalanceBefore/BalanceAfter are read inside the same
// transaction that moves the money, for reconciliation.
type ShopTransaction struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID        uuid.UUID                 `gorm:"column:shop_id;type:uuid;not null"`
	OrderID       *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	Type          enums.ShopTransactionType `gorm:"column:type;type:shop_transaction_type;not null"`
	Amount        decimal.Decimal           `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceBefore decimal.Decimal           `gorm:"column:balance_before;type:numeric(14,2);not null"`
	BalanceAfter  decimal.Decimal           `gorm:"column:balance_after;type:numeric(14,2);not null"`
	Note          *string                   `gorm:"column:note"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
