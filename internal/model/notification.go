package model

import "github.com/shopspring/decimal"

// NotificationKind categorizes rate-change notifications.
type NotificationKind string

const (
	// NotificationUpcoming announces a predicted payment that is today or later.
	NotificationUpcoming NotificationKind = "upcoming"
	// NotificationRateChanged announces an average amount that moved against
	// the persisted baseline.
	NotificationRateChanged NotificationKind = "rate_changed"
	// NotificationRateNew announces an average amount with no baseline entry.
	NotificationRateNew NotificationKind = "rate_new"
)

// Notification is one human-readable rate or upcoming-payment notice. The
// notifier fully replaces the notification list on every refresh.
type Notification struct {
	Kind           NotificationKind
	SubscriptionID string
	Name           string
	Message        string

	// DaysUntil is set for upcoming notifications.
	DaysUntil int
	// OldAmount is set for rate_changed notifications.
	OldAmount *decimal.Decimal
	// NewAmount is set for rate_changed and rate_new notifications.
	NewAmount *decimal.Decimal
}
