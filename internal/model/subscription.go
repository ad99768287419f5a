// Package model defines domain types for subtrack subscriptions and recommendations.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// pastCutoff is how long after the last observed payment a subscription
// still counts as active.
const pastCutoff = 30 * 24 * time.Hour

// SubscriptionRecord is one tracked recurring payment.
// Optional fields are zero-valued when the backend did not supply them.
type SubscriptionRecord struct {
	ID                string
	Name              string
	IsActive          bool
	LastDate          time.Time
	PredictedNextDate time.Time
	AverageAmount     *decimal.Decimal
}

// Past reports whether the record belongs in the "past" partition at the
// given time: explicitly inactive, or last seen more than 30 days ago.
// The rule is derived on every call, never stored.
func (r SubscriptionRecord) Past(now time.Time) bool {
	if !r.IsActive {
		return true
	}
	if !r.LastDate.IsZero() && now.Sub(r.LastDate) > pastCutoff {
		return true
	}
	return false
}

// Partition splits records into active and past sets at the given time.
// Every record lands in exactly one of the two.
func Partition(records []SubscriptionRecord, now time.Time) (active, past []SubscriptionRecord) {
	for _, r := range records {
		if r.Past(now) {
			past = append(past, r)
		} else {
			active = append(active, r)
		}
	}
	return active, past
}

// MonthlyTotal sums the average amounts of active records. Records without a
// parseable amount are excluded from the sum, not counted as zero.
func MonthlyTotal(records []SubscriptionRecord, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Past(now) || r.AverageAmount == nil {
			continue
		}
		total = total.Add(*r.AverageAmount)
	}
	return total
}

// DetailRecord holds the lazily fetched extended fields for one subscription.
type DetailRecord struct {
	ID                string
	Name              string
	Description       string
	Frequency         string
	Status            string
	WebsiteURL        string
	CancelURL         string
	ReactivateURL     string
	FirstDate         time.Time
	LastDate          time.Time
	PredictedNextDate time.Time
	LastUserModified  time.Time
	IsActive          *bool
	AverageAmount     *decimal.Decimal
	LastAmount        *decimal.Decimal
	TransactionIDs    []string
}

// AverageEntry is one row of the subscription-averages feed consumed by the
// rate-change notifier.
type AverageEntry struct {
	ID                string
	Name              string
	IsActive          bool
	AverageAmount     *decimal.Decimal
	PredictedNextDate time.Time
}
