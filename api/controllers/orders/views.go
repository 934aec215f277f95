package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// orderView is the wire shape of an order. The delivery code is only
// filled in for the buyer who owns the order; shop and runner callers
// must never see it before handover.
type orderView struct {
	OrderID            uuid.UUID         `json:"order_id"`
	Status             enums.OrderStatus `json:"status"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	DeliveryFee        decimal.Decimal   `json:"delivery_fee"`
	GrandTotal         decimal.Decimal   `json:"grand_total"`
	DeliveryCode       string            `json:"delivery_code,omitempty"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	RefundInitiated    bool              `json:"refund_initiated"`
	Items              []itemView        `json:"items,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type itemView struct {
	ItemID          uuid.UUID       `json:"item_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	ShopID          uuid.UUID       `json:"shop_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

type historyView struct {
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Actor      enums.ActorRole   `json:"actor"`
	CreatedAt  time.Time         `json:"created_at"`
}

type orderListResponse struct {
	Orders     []orderView `json:"orders"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

type orderDetailResponse struct {
	Order   orderView     `json:"order"`
	History []historyView `json:"history"`
}

func newOrderView(order models.Order, includeDeliveryCode bool) orderView {
	view := orderView{
		OrderID:            order.ID,
		Status:             order.Status,
		TotalAmount:        order.TotalAmount,
		DeliveryFee:        order.DeliveryFee,
		GrandTotal:         order.GrandTotal(),
		CancellationReason: order.CancellationReason,
		RefundInitiated:    order.RefundInitiated,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if includeDeliveryCode && order.Status != enums.OrderStatusCompleted && order.Status != enums.OrderStatusCancelled {
		view.DeliveryCode = order.OTPCode
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, itemView{
			ItemID:          item.ID,
			ProductID:       item.ProductID,
			ShopID:          item.ShopID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
			Subtotal:        item.Subtotal(),
		})
	}
	return view
}

func newOrderListResponse(orders []models.Order, nextCursor *string, includeDeliveryCode bool) orderListResponse {
	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, newOrderView(order, includeDeliveryCode))
	}
	return orderListResponse{Orders: views, NextCursor: nextCursor}
}

func newHistoryViews(events []models.OrderStatusEvent) []historyView {
	views := make([]historyView, 0, len(events))
	for _, event := range events {
		views = append(views, historyView{
			FromStatus: event.FromStatus,
			ToStatus:   event.ToStatus,
			Actor:      event.Actor,
			CreatedAt:  event.CreatedAt,
		})
	}
	return views
}
