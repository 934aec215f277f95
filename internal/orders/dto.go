package orders

import (
	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// TransitionResult reports the outcome of a lifecycle operation.
// StatusChanged is false when the order was already in the target status
// and the call was absorbed as an idempotent repeat.
type TransitionResult struct {
	OrderID        uuid.UUID         `json:"order_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	NewStatus      enums.OrderStatus `json:"new_status"`
	StatusChanged  bool              `json:"status_changed"`
}

// ConfirmPaymentInput carries the gateway confirmation for a pending order.
type ConfirmPaymentInput struct {
	TxRef string
}

// FailPaymentInput carries a gateway charge failure.
type FailPaymentInput struct {
	TxRef  string
	Reason string
}

// DispatchInput marks the order handed to a delivery runner.
type DispatchInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorShopID uuid.UUID
}

// MarkArrivedInput reports the runner reached the buyer.
type MarkArrivedInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
}

// CompleteInput carries the delivery confirmation code collected from the
// buyer at handover.
type CompleteInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	OTP         string
}

// CancelInput carries a buyer or admin cancellation.
type CancelInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
	Reason      string
}

// OrderList is one cursor page of orders.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// OrderDetail bundles an order with its append-only status history.
type OrderDetail struct {
	Order   models.Order              `json:"order"`
	History []models.OrderStatusEvent `json:"history"`
}
