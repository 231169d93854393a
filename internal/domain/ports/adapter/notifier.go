package adapter

import "context"

// NotificationKind enumerates the events this service announces.
type NotificationKind string

const (
	NotifySubscriptionActivated NotificationKind = "subscription_activated"
	NotifySubscriptionCancelled NotificationKind = "subscription_cancelled"
	NotifyPaymentFailed         NotificationKind = "payment_failed"
	NotifyAdminPurchase         NotificationKind = "admin_subscription_purchased"
)

// Notifier hands events to the job board's notification service. Delivery is
// fire-and-forget; implementations log failures and never block business flow.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind NotificationKind, payload map[string]string) error
}
