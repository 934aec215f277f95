package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type_enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder           OutboxAggregateType = "order"
	AggregateShop            OutboxAggregateType = "shop"
	AggregateShopTransaction OutboxAggregateType = "shop_transaction"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateShop,
	AggregateShopTransaction,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type_enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated    OutboxEventType = "order_created"
	EventOrderPaid       OutboxEventType = "order_paid"
	EventPaymentFailed   OutboxEventType = "payment_failed"
	EventOrderDispatched OutboxEventType = "order_dispatched"
	EventOrderArrived    OutboxEventType = "order_arrived"
	EventOrderCompleted  OutboxEventType = "order_completed"
	EventOrderCancelled  OutboxEventType = "order_cancelled"
	EventShopCredited    OutboxEventType = "shop_credited"
	EventRefundInitiated OutboxEventType = "refund_initiated"
	EventRefundFailed    OutboxEventType = "refund_failed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventPaymentFailed,
	EventOrderDispatched,
	EventOrderArrived,
	EventOrderCompleted,
	EventOrderCancelled,
	EventShopCredited,
	EventRefundInitiated,
	EventRefundFailed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
