package model

import "github.com/shopspring/decimal"

// Recommendation is the keep/cancel result of the budget recommendation
// endpoint. Keep and Cancel hold subscription IDs.
type Recommendation struct {
	Keep               []string
	Cancel             []string
	TotalSubscriptions decimal.Decimal
	OtherTransactions  decimal.Decimal
	AllSpending        decimal.Decimal
}

// NameFor resolves a subscription ID to its display name, falling back to the
// raw ID when the record is unknown.
func NameFor(id string, records []SubscriptionRecord) string {
	for _, r := range records {
		if r.ID == id {
			return r.Name
		}
	}
	return id
}
