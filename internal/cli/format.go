package cli

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormatAmount formats a money amount as dollars with two decimals.
// A nil amount renders as an em-dash placeholder.
func FormatAmount(d *decimal.Decimal) string {
	if d == nil {
		return "—"
	}
	return "$" + d.StringFixed(2)
}

// FormatTotal formats a non-optional money amount.
func FormatTotal(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatDate formats an optional date. The zero time renders as a placeholder.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("Jan 02 2006")
}

// FormatActive renders the active/past partition label.
func FormatActive(past bool) string {
	if past {
		return "past"
	}
	return "active"
}
