package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// ItemInput is one requested line: a live product and how many units.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CheckoutInput captures a buyer's order request.
type CheckoutInput struct {
	BuyerUserID uuid.UUID
	Items       []ItemInput
}

// CheckoutResult is returned to the mini-app after the order is persisted
// and the hosted payment session is opened.
type CheckoutResult struct {
	OrderID     uuid.UUID         `json:"order_id"`
	Status      enums.OrderStatus `json:"status"`
	TxRef       string            `json:"tx_ref"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	DeliveryFee decimal.Decimal   `json:"delivery_fee"`
	GrandTotal  decimal.Decimal   `json:"grand_total"`
	CheckoutURL string            `json:"checkout_url"`
}
