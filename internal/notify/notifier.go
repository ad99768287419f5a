// Package notify computes rate-change and upcoming-payment notifications
// against a durable per-subscription baseline.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/model"
	"github.com/patcav/subtrack/internal/session"
	"github.com/patcav/subtrack/internal/storage"
)

// Notifier diffs freshly fetched average amounts against the persisted
// baseline. It is the only component that mutates the baseline.
type Notifier struct {
	api     *api.Client
	session *session.Store
	kv      *storage.KV

	mu            sync.Mutex
	notifications []model.Notification

	now func() time.Time
}

// New creates a notifier.
func New(client *api.Client, sess *session.Store, kv *storage.KV) *Notifier {
	return &Notifier{
		api:     client,
		session: sess,
		kv:      kv,
		now:     time.Now,
	}
}

// Refresh fetches current averages, emits notifications for active records,
// then replaces the persisted baseline wholesale with the fetched map.
// The notification list is fully replaced on every call. Runs when a session
// becomes valid and again after a successful recurring-transaction fetch.
func (n *Notifier) Refresh(ctx context.Context) ([]model.Notification, error) {
	token, ok := n.session.Token()
	if !ok {
		return nil, session.ErrNotSignedIn
	}
	epoch := n.session.Epoch()

	entries, err := n.api.SubscriptionAverages(ctx, token)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = n.session.SignOut()
		}
		return nil, err
	}
	if !n.session.Current(epoch) {
		return nil, nil
	}

	baseline, err := n.loadBaseline()
	if err != nil {
		return nil, err
	}

	now := n.now()
	fresh := make(map[string]decimal.Decimal)
	var out []model.Notification

	for _, entry := range entries {
		// Stricter than the repository partition: only the explicit flag
		// counts here.
		if !entry.IsActive {
			continue
		}

		if !entry.PredictedNextDate.IsZero() {
			if days, ok := daysUntil(now, entry.PredictedNextDate); ok {
				out = append(out, model.Notification{
					Kind:           model.NotificationUpcoming,
					SubscriptionID: entry.ID,
					Name:           entry.Name,
					DaysUntil:      days,
					Message:        upcomingMessage(entry.Name, days),
				})
			}
		}

		if entry.AverageAmount == nil {
			continue
		}
		amount := *entry.AverageAmount
		fresh[entry.ID] = amount

		prev, had := baseline[entry.ID]
		switch {
		case !had:
			out = append(out, model.Notification{
				Kind:           model.NotificationRateNew,
				SubscriptionID: entry.ID,
				Name:           entry.Name,
				NewAmount:      entry.AverageAmount,
				Message:        fmt.Sprintf("%s: rate is $%s", entry.Name, amount.StringFixed(2)),
			})
		case !prev.Equal(amount):
			old := prev
			out = append(out, model.Notification{
				Kind:           model.NotificationRateChanged,
				SubscriptionID: entry.ID,
				Name:           entry.Name,
				OldAmount:      &old,
				NewAmount:      entry.AverageAmount,
				Message: fmt.Sprintf("%s: rate changed from $%s to $%s",
					entry.Name, prev.StringFixed(2), amount.StringFixed(2)),
			})
		}
	}

	// Whole-map replacement: subscriptions gone from the active set drop
	// out of the baseline silently.
	if err := n.saveBaseline(fresh); err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.notifications = out
	n.mu.Unlock()
	return out, nil
}

// Notifications returns the result of the most recent Refresh.
func (n *Notifier) Notifications() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}

// daysUntil returns the ceiling of the real-valued day difference from now
// to next, and whether next resolves to today or later.
func daysUntil(now, next time.Time) (int, bool) {
	days := int(math.Ceil(next.Sub(now).Hours() / 24))
	if days < 0 {
		return 0, false
	}
	return days, true
}

func upcomingMessage(name string, days int) string {
	switch days {
	case 0:
		return fmt.Sprintf("%s: payment due today", name)
	case 1:
		return fmt.Sprintf("%s: 1 day until next payment", name)
	default:
		return fmt.Sprintf("%s: %d days until next payment", name, days)
	}
}

// loadBaseline reads the persisted id -> amount map. An absent or corrupted
// baseline starts empty rather than failing the refresh.
func (n *Notifier) loadBaseline() (map[string]decimal.Decimal, error) {
	stored, ok, err := n.kv.Get(storage.KeyRateBaseline)
	if err != nil {
		return nil, fmt.Errorf("notify: reading baseline: %w", err)
	}
	baseline := make(map[string]decimal.Decimal)
	if !ok {
		return baseline, nil
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(stored), &raw); err != nil {
		return baseline, nil
	}
	for id, s := range raw {
		if d, err := decimal.NewFromString(s); err == nil {
			baseline[id] = d
		}
	}
	return baseline, nil
}

func (n *Notifier) saveBaseline(baseline map[string]decimal.Decimal) error {
	raw := make(map[string]string, len(baseline))
	for id, d := range baseline {
		raw[id] = d.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("notify: encoding baseline: %w", err)
	}
	if err := n.kv.Set(storage.KeyRateBaseline, string(data)); err != nil {
		return fmt.Errorf("notify: persisting baseline: %w", err)
	}
	return nil
}
