package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox/idempotency"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type shopLookup interface {
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
}

// Consumer watches the order event stream and turns lifecycle transitions
// into inbox notifications for buyers and shop owners.
type Consumer struct {
	repo         repository
	shops        shopLookup
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, shops shopLookup, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shop lookup required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("order events subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		shops:        shops,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if envelope.EventID == "" {
		c.logg.Warn(logCtx, "envelope missing event id")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, envelope.EventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderPaid, enums.EventOrderDispatched, enums.EventOrderArrived, enums.EventOrderCompleted:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse status payload: %w", err)
		}
		return c.notifyBuyerOfTransition(ctx, eventType, payload, logCtx)
	case enums.EventPaymentFailed:
		var payload payloads.PaymentFailedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment-failed payload: %w", err)
		}
		return c.notifyPaymentFailed(ctx, payload, logCtx)
	case enums.EventOrderCancelled:
		var payload payloads.OrderCancelledEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse cancellation payload: %w", err)
		}
		return c.notifyCancelled(ctx, payload, logCtx)
	case enums.EventShopCredited:
		var payload payloads.ShopCreditedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse credit payload: %w", err)
		}
		return c.notifyShopCredited(ctx, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) notifyBuyerOfTransition(ctx context.Context, eventType enums.OutboxEventType, payload payloads.OrderStatusChangedEvent, logCtx context.Context) error {
	if payload.BuyerUserID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}

	var kind enums.NotificationType
	var title, message string
	short := shortOrderID(payload.OrderID)
	switch eventType {
	case enums.EventOrderPaid:
		kind = enums.NotificationTypeOrderPaid
		title = "Payment received"
		message = fmt.Sprintf("Payment for order %s is confirmed. Your items are being prepared.", short)
	case enums.EventOrderDispatched:
		kind = enums.NotificationTypeOrderDispatched
		title = "Order on the way"
		message = fmt.Sprintf("Order %s has been handed to a delivery runner.", short)
	case enums.EventOrderArrived:
		kind = enums.NotificationTypeOrderArrived
		title = "Order arrived"
		if payload.DeliveryCode != "" {
			message = fmt.Sprintf("Order %s has arrived. Share delivery code %s with the runner to complete it.", short, payload.DeliveryCode)
		} else {
			message = fmt.Sprintf("Order %s has arrived. Share your delivery code with the runner to complete it.", short)
		}
	case enums.EventOrderCompleted:
		kind = enums.NotificationTypeOrderCompleted
		title = "Order completed"
		message = fmt.Sprintf("Order %s is complete. Thank you for shopping with us.", short)
	default:
		return fmt.Errorf("unsupported transition event %s", eventType)
	}

	if err := c.create(ctx, payload.BuyerUserID, kind, title, message, map[string]any{"order_id": payload.OrderID}); err != nil {
		return err
	}
	c.logg.Info(logCtx, "buyer notified of order transition")
	return nil
}

func (c *Consumer) notifyPaymentFailed(ctx context.Context, payload payloads.PaymentFailedEvent, logCtx context.Context) error {
	if payload.BuyerUserID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}
	message := fmt.Sprintf("Payment for order %s did not go through. The order was cancelled and stock released.", shortOrderID(payload.OrderID))
	if err := c.create(ctx, payload.BuyerUserID, enums.NotificationTypePaymentFailed, "Payment failed", message, map[string]any{"order_id": payload.OrderID}); err != nil {
		return err
	}
	c.logg.Info(logCtx, "buyer notified of payment failure")
	return nil
}

func (c *Consumer) notifyCancelled(ctx context.Context, payload payloads.OrderCancelledEvent, logCtx context.Context) error {
	if payload.BuyerUserID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}
	message := fmt.Sprintf("Order %s was cancelled.", shortOrderID(payload.OrderID))
	if payload.Reason != "" {
		message = fmt.Sprintf("Order %s was cancelled: %s", shortOrderID(payload.OrderID), payload.Reason)
	}
	if payload.FromStatus == enums.OrderStatusPaidEscrow {
		message += " Your payment will be refunded."
	}
	if err := c.create(ctx, payload.BuyerUserID, enums.NotificationTypeOrderCancelled, "Order cancelled", message, map[string]any{"order_id": payload.OrderID}); err != nil {
		return err
	}
	c.logg.Info(logCtx, "buyer notified of cancellation")
	return nil
}

func (c *Consumer) notifyShopCredited(ctx context.Context, payload payloads.ShopCreditedEvent, logCtx context.Context) error {
	if payload.ShopID == uuid.Nil {
		return fmt.Errorf("shop id missing")
	}
	shop, err := c.shops.FindShop(ctx, payload.ShopID)
	if err != nil {
		return fmt.Errorf("load shop %s: %w", payload.ShopID, err)
	}
	message := fmt.Sprintf("%s ETB from order %s has been released to your balance.", payload.Amount.StringFixed(2), shortOrderID(payload.OrderID))
	if err := c.create(ctx, shop.OwnerUserID, enums.NotificationTypeBalanceCredited, "Balance credited", message, map[string]any{
		"order_id":       payload.OrderID,
		"shop_id":        payload.ShopID,
		"transaction_id": payload.TransactionID,
	}); err != nil {
		return err
	}
	c.logg.Info(logCtx, "shop owner notified of credit")
	return nil
}

func (c *Consumer) create(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationType, title, message string, data map[string]any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	return c.repo.Create(ctx, &models.Notification{
		RecipientID: recipientID,
		Type:        kind,
		Title:       title,
		Message:     message,
		Data:        encoded,
	})
}

func shortOrderID(orderID uuid.UUID) string {
	id := orderID.String()
	if len(id) < 8 {
		return id
	}
	return "#" + id[:8]
}
