// Package subs caches and mutates the authoritative subscription list for
// the current session.
package subs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/model"
	"github.com/patcav/subtrack/internal/session"
)

// ErrEmptyName rejects blank subscription names client-side, before any
// network call is made.
var ErrEmptyName = errors.New("subs: subscription name must not be empty")

// Repository is the cached subscription set. The cache is mutated only here;
// other components read snapshots.
type Repository struct {
	api     *api.Client
	session *session.Store

	mu          sync.Mutex
	records     []model.SubscriptionRecord
	details     map[string]model.DetailRecord
	loadedEpoch int64
	loaded      bool

	now func() time.Time
}

// New creates a repository for the given session.
func New(client *api.Client, sess *session.Store) *Repository {
	return &Repository{
		api:     client,
		session: sess,
		details: make(map[string]model.DetailRecord),
		now:     time.Now,
	}
}

// List returns the current subscription set, fetching it once per valid
// session. Callers re-trigger explicitly after a failure; nothing retries.
func (r *Repository) List(ctx context.Context) ([]model.SubscriptionRecord, error) {
	r.mu.Lock()
	fresh := r.loaded && r.session.Current(r.loadedEpoch)
	r.mu.Unlock()

	if !fresh {
		if err := r.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return r.Records(), nil
}

// Refresh replaces the whole cached set with a fresh authenticated fetch.
// An unauthorized response forces sign-out; a response arriving for a
// superseded session is dropped without touching the cache.
func (r *Repository) Refresh(ctx context.Context) error {
	token, ok := r.session.Token()
	if !ok {
		return session.ErrNotSignedIn
	}
	epoch := r.session.Epoch()

	records, err := r.api.MySubscriptions(ctx, token)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = r.session.SignOut()
		}
		return err
	}
	if !r.session.Current(epoch) {
		return nil
	}

	r.mu.Lock()
	r.records = records
	r.loaded = true
	r.loadedEpoch = epoch
	r.mu.Unlock()
	return nil
}

// Add submits one new subscription name and refetches the full list.
// Empty and whitespace-only names are rejected without a network call.
func (r *Repository) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if _, err := r.api.AddItems(ctx, []string{name}); err != nil {
		return err
	}
	return r.Refresh(ctx)
}

// Remove deletes one subscription. On success the record is dropped from the
// cache locally, without a refetch; on failure the cache is untouched.
// Removing an id absent from the cache still issues the delete.
func (r *Repository) Remove(ctx context.Context, id string) error {
	token, ok := r.session.Token()
	if !ok {
		return session.ErrNotSignedIn
	}
	epoch := r.session.Epoch()

	if err := r.api.DeleteSubscription(ctx, token, id); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = r.session.SignOut()
		}
		return err
	}
	if !r.session.Current(epoch) {
		return nil
	}

	r.mu.Lock()
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	delete(r.details, id)
	r.mu.Unlock()
	return nil
}

// Details fetches the extended fields for one record. Every explicit details
// request refetches so server-computed fields (cancel/reactivate links) stay
// current; the cached copy is only a fallback for display between fetches.
func (r *Repository) Details(ctx context.Context, id string) (model.DetailRecord, error) {
	token, ok := r.session.Token()
	if !ok {
		return model.DetailRecord{}, session.ErrNotSignedIn
	}
	epoch := r.session.Epoch()

	detail, err := r.api.SubscriptionDetail(ctx, token, id)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = r.session.SignOut()
		}
		return model.DetailRecord{}, err
	}
	if !r.session.Current(epoch) {
		return model.DetailRecord{}, session.ErrNotSignedIn
	}

	r.mu.Lock()
	r.details[id] = detail
	r.mu.Unlock()
	return detail, nil
}

// CachedDetails returns the last fetched detail record for id, if any.
func (r *Repository) CachedDetails(id string) (model.DetailRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.details[id]
	return d, ok
}

// Merge adds records to the cached set, deduplicated by id against the
// existing records. Used for bank-derived subscriptions reported as newly
// saved by the backend.
func (r *Repository) Merge(records []model.SubscriptionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(r.records))
	for _, rec := range r.records {
		seen[rec.ID] = true
	}
	for _, rec := range records {
		if rec.ID == "" || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		r.records = append(r.records, rec)
	}
}

// Records returns a snapshot of the cached set.
func (r *Repository) Records() []model.SubscriptionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SubscriptionRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Partition splits the cached set into active and past at the current time.
func (r *Repository) Partition() (active, past []model.SubscriptionRecord) {
	return model.Partition(r.Records(), r.now())
}

// MonthlyTotal sums the average amounts of the cached active records.
func (r *Repository) MonthlyTotal() decimal.Decimal {
	return model.MonthlyTotal(r.Records(), r.now())
}
