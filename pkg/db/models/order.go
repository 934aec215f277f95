package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// Order is the aggregate root of the escrow lifecycle. Rows are never
// deleted; COMPLETED and CANCELLED orders are retained for audit.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'PENDING'"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DeliveryFee decimal.Decimal   `gorm:"column:delivery_fee;type:numeric(12,2);not null"`

	OTPCode     string `gorm:"column:otp_code;type:char(6);not null"`
	OTPAttempts int    `gorm:"column:otp_attempts;not null;default:0"`

	ChapaTxRef *string `gorm:"column:chapa_tx_ref;type:text"`

	CancellationReason *string          `gorm:"column:cancellation_reason"`
	RefundInitiated    bool             `gorm:"column:refund_initiated;not null;default:false"`
	RefundAmount       *decimal.Decimal `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundInitiatedAt  *time.Time       `gorm:"column:refund_initiated_at"`
	RefundFailed       bool             `gorm:"column:refund_failed;not null;default:false"`
	RefundError        *string          `gorm:"column:refund_error"`

	Items        []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusEvents []OrderStatusEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// GrandTotal is the amount captured by the gateway: products plus delivery.
func (o *Order) GrandTotal() decimal.Decimal {
	return o.TotalAmount.Add(o.DeliveryFee)
}
