package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderPaid       NotificationType = "order_paid"
	NotificationTypePaymentFailed   NotificationType = "payment_failed"
	NotificationTypeOrderDispatched NotificationType = "order_dispatched"
	NotificationTypeOrderArrived    NotificationType = "order_arrived"
	NotificationTypeOrderCompleted  NotificationType = "order_completed"
	NotificationTypeOrderCancelled  NotificationType = "order_cancelled"
	NotificationTypeBalanceCredited NotificationType = "balance_credited"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPaid,
	NotificationTypePaymentFailed,
	NotificationTypeOrderDispatched,
	NotificationTypeOrderArrived,
	NotificationTypeOrderCompleted,
	NotificationTypeOrderCancelled,
	NotificationTypeBalanceCredited,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
