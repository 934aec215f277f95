package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// OrderItem captures the snapshot of each line at purchase time. The price
// is copied from the product when the order is created and never re-read.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ShopID          uuid.UUID       `gorm:"column:shop_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	PriceAtPurchase decimal.Decimal `gorm:"column:price_at_purchase;type:numeric(12,2);not null"`
	ShopCity        enums.City      `gorm:"column:shop_city;type:city;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Subtotal is the escrow amount this line contributes to its shop.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
