package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patcav/subtrack/internal/model"
)

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RecommendRequest is the budget recommendation payload. Ranks holds
// subscription IDs ordered most-valued first.
type RecommendRequest struct {
	Budget      decimal.Decimal `json:"budget"`
	AccessToken string          `json:"access_token"`
	Ranks       []string        `json:"ranks"`
}

// DiscoveredItem is one bank-derived subscription candidate submitted to the
// backend for persistence.
type DiscoveredItem struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description,omitempty"`
	FirstDate         string           `json:"first_date,omitempty"`
	LastDate          string           `json:"last_date,omitempty"`
	Frequency         string           `json:"frequency,omitempty"`
	AverageAmount     *decimal.Decimal `json:"average_amount,omitempty"`
	LastAmount        *decimal.Decimal `json:"last_amount,omitempty"`
	IsActive          bool             `json:"is_active"`
	PredictedNextDate string           `json:"predicted_next_date,omitempty"`
	LastUserModified  string           `json:"last_user_modified_time,omitempty"`
	Status            string           `json:"status,omitempty"`
}

// OutflowStream is one recurring outflow from the bank aggregation provider.
// Amount fields arrive nested as {"amount": ...}; dates as plain strings.
type OutflowStream struct {
	MerchantName      string       `json:"merchant_name"`
	Description       string       `json:"description"`
	FirstDate         string       `json:"first_date"`
	LastDate          string       `json:"last_date"`
	Frequency         string       `json:"frequency"`
	AverageAmount     StreamAmount `json:"average_amount"`
	LastAmount        StreamAmount `json:"last_amount"`
	IsActive          bool         `json:"is_active"`
	PredictedNextDate string       `json:"predicted_next_date"`
	LastUserModified  string       `json:"last_user_modified_datetime"`
	Status            string       `json:"status"`
}

// StreamAmount wraps the provider's nested amount object.
type StreamAmount struct {
	Amount json.RawMessage `json:"amount"`
}

// Value returns the parsed amount, or nil if absent or unparseable.
func (a StreamAmount) Value() *decimal.Decimal {
	return parseAmount(a.Amount)
}

// rawSubscription is the wire shape of a subscription record. The backend is
// loose about types here: IDs may be numbers or strings, amounts may be
// numbers, strings, or nested objects, and is_active may be omitted.
type rawSubscription struct {
	ID                json.RawMessage `json:"id"`
	Name              string          `json:"name"`
	MerchantName      string          `json:"merchant_name"`
	IsActive          *bool           `json:"is_active"`
	LastDate          string          `json:"last_date"`
	PredictedNextDate string          `json:"predicted_next_date"`
	AverageAmount     json.RawMessage `json:"average_amount"`
}

func (r rawSubscription) toModel() model.SubscriptionRecord {
	rec := model.SubscriptionRecord{
		ID:            parseID(r.ID),
		Name:          r.Name,
		IsActive:      true,
		AverageAmount: parseAmount(r.AverageAmount),
	}
	if rec.Name == "" {
		rec.Name = r.MerchantName
	}
	if r.IsActive != nil {
		rec.IsActive = *r.IsActive
	}
	rec.LastDate = parseDate(r.LastDate)
	rec.PredictedNextDate = parseDate(r.PredictedNextDate)
	return rec
}

// rawDetail is the wire shape of the subscription detail endpoint.
type rawDetail struct {
	ID                json.RawMessage `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Frequency         string          `json:"frequency"`
	Status            string          `json:"status"`
	WebsiteURL        string          `json:"website_url"`
	CancelURL         string          `json:"cancel_url"`
	ReactivateURL     string          `json:"reactivate_url"`
	FirstDate         string          `json:"first_date"`
	LastDate          string          `json:"last_date"`
	PredictedNextDate string          `json:"predicted_next_date"`
	LastUserModified  string          `json:"last_user_modified_time"`
	IsActive          *bool           `json:"is_active"`
	AverageAmount     json.RawMessage `json:"average_amount"`
	LastAmount        json.RawMessage `json:"last_amount"`
	TransactionIDs    []string        `json:"transaction_ids"`
}

func (r rawDetail) toModel() model.DetailRecord {
	return model.DetailRecord{
		ID:                parseID(r.ID),
		Name:              r.Name,
		Description:       r.Description,
		Frequency:         r.Frequency,
		Status:            r.Status,
		WebsiteURL:        r.WebsiteURL,
		CancelURL:         r.CancelURL,
		ReactivateURL:     r.ReactivateURL,
		FirstDate:         parseDate(r.FirstDate),
		LastDate:          parseDate(r.LastDate),
		PredictedNextDate: parseDate(r.PredictedNextDate),
		LastUserModified:  parseDate(r.LastUserModified),
		IsActive:          r.IsActive,
		AverageAmount:     parseAmount(r.AverageAmount),
		LastAmount:        parseAmount(r.LastAmount),
		TransactionIDs:    r.TransactionIDs,
	}
}

// rawAverage is one row of the subscription-averages response.
type rawAverage struct {
	ID                json.RawMessage `json:"id"`
	Name              string          `json:"name"`
	IsActive          *bool           `json:"is_active"`
	AverageAmount     json.RawMessage `json:"average_amount"`
	PredictedNextDate string          `json:"predicted_next_date"`
}

func (r rawAverage) toModel() model.AverageEntry {
	entry := model.AverageEntry{
		ID:                parseID(r.ID),
		Name:              r.Name,
		IsActive:          true,
		AverageAmount:     parseAmount(r.AverageAmount),
		PredictedNextDate: parseDate(r.PredictedNextDate),
	}
	if r.IsActive != nil {
		entry.IsActive = *r.IsActive
	}
	return entry
}

// parseID normalizes a polymorphic id field (string or number) to a string.
func parseID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}

// parseAmount defensively parses a polymorphic amount field. Handles JSON
// numbers (9.99), strings ("9.99"), and nested objects ({"amount": 9.99}).
// Returns nil when absent or unparseable.
func parseAmount(raw json.RawMessage) *decimal.Decimal {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		d := decimal.NewFromFloat(f)
		return &d
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
		if s == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return &d
	}

	var nested StreamAmount
	if err := json.Unmarshal(raw, &nested); err == nil {
		return parseAmount(nested.Amount)
	}

	return nil
}

// parseDate accepts the date shapes the backend emits. Returns the zero time
// when the field is empty or unrecognized.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
