package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// OrderCreatedEvent signals a new pending order awaiting payment.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	BuyerUserID uuid.UUID       `json:"buyer_user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	ItemCount   int             `json:"item_count"`
}

// OrderStatusChangedEvent is emitted for every committed status transition.
// DeliveryCode is set only on the ARRIVED event, where the buyer has to be
// told which code to hand the runner.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	BuyerUserID  uuid.UUID         `json:"buyer_user_id"`
	FromStatus   enums.OrderStatus `json:"from_status"`
	ToStatus     enums.OrderStatus `json:"to_status"`
	Actor        enums.ActorRole   `json:"actor"`
	DeliveryCode string            `json:"delivery_code,omitempty"`
	ChangedAt    time.Time         `json:"changed_at"`
}

// PaymentFailedEvent reports a gateway charge failure for a pending order.
type PaymentFailedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerUserID uuid.UUID `json:"buyer_user_id"`
	TxRef       string    `json:"tx_ref"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderCancelledEvent is emitted when an order is cancelled from a
// cancellable status.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	BuyerUserID uuid.UUID         `json:"buyer_user_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	Reason      string            `json:"reason,omitempty"`
	CancelledAt time.Time         `json:"cancelled_at"`
}

// ShopCreditedEvent reports an escrow release into a shop balance.
type ShopCreditedEvent struct {
	ShopID        uuid.UUID       `json:"shop_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// RefundInitiatedEvent reports a refund request sent to the gateway.
type RefundInitiatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	BuyerUserID uuid.UUID       `json:"buyer_user_id"`
	TxRef       string          `json:"tx_ref"`
	Amount      decimal.Decimal `json:"amount"`
}

// RefundFailedEvent flags a cancelled order whose refund call failed and
// needs manual review.
type RefundFailedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	TxRef   string    `json:"tx_ref"`
	Error   string    `json:"error"`
}
