// Package banklink owns the bank aggregation credential and the operations
// gated on it.
package banklink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/model"
	"github.com/patcav/subtrack/internal/notify"
	"github.com/patcav/subtrack/internal/subs"
)

// Status messages surfaced to the UI, matching the link widget flow.
const (
	StatusLinked         = "Bank account linked!"
	StatusLinkFailed     = "Failed to link account"
	StatusNoLinkHandle   = "Failed to fetch link token"
	StatusFetchRecurring = "Fetched recurring transactions!"
)

// Manager holds the bank-link credential. The credential lives in process
// memory only: it is never written to durable storage, never derived from
// the session token, and never cleared by session sign-out.
type Manager struct {
	api      *api.Client
	repo     *subs.Repository
	notifier *notify.Notifier

	mu          sync.Mutex
	linkToken   string
	accessToken string
	status      string
}

// New creates a manager.
func New(client *api.Client, repo *subs.Repository, notifier *notify.Notifier) *Manager {
	return &Manager{
		api:      client,
		repo:     repo,
		notifier: notifier,
	}
}

// RequestLinkHandle fetches the one-time handle the link widget needs. On
// failure the handle stays unset and the link action remains unavailable.
func (m *Manager) RequestLinkHandle(ctx context.Context) (string, error) {
	tok, err := m.api.CreateLinkToken(ctx)
	if err != nil {
		m.setStatus(StatusNoLinkHandle)
		return "", err
	}

	m.mu.Lock()
	m.linkToken = tok
	m.mu.Unlock()
	return tok, nil
}

// LinkHandle returns the fetched link handle, if any.
func (m *Manager) LinkHandle() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkToken, m.linkToken != ""
}

// CompleteLink exchanges the widget's public token for the long-lived
// credential. This is the only path that may set the credential from the
// backend.
func (m *Manager) CompleteLink(ctx context.Context, publicToken string) error {
	access, err := m.api.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		m.setStatus(StatusLinkFailed)
		return err
	}

	m.mu.Lock()
	m.accessToken = access
	m.status = StatusLinked
	m.mu.Unlock()
	return nil
}

// SetAccessToken injects a credential obtained in a previous process run
// (flag or environment passthrough). It is still held in memory only.
func (m *Manager) SetAccessToken(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	m.mu.Lock()
	m.accessToken = token
	m.mu.Unlock()
}

// AccessToken returns the live credential, or false when the account is not
// linked.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken, m.accessToken != ""
}

// Linked reports whether the bank credential is present.
func (m *Manager) Linked() bool {
	_, ok := m.AccessToken()
	return ok
}

// Status returns the most recent link-flow status message.
func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// FetchRecurring fetches the provider's recurring outflow streams, derives
// subscription candidates, submits them for persistence, merges the newly
// saved records into the repository, and refreshes the notifier so the new
// records get a baseline entry. Without a credential it is a silent no-op.
func (m *Manager) FetchRecurring(ctx context.Context, mock bool) ([]model.SubscriptionRecord, error) {
	access, ok := m.AccessToken()
	if !ok {
		return nil, nil
	}

	streams, err := m.api.RecurringTransactions(ctx, access, mock)
	if err != nil {
		return nil, err
	}
	m.setStatus(StatusFetchRecurring)

	candidates := DeriveCandidates(streams)
	if len(candidates) == 0 {
		return nil, nil
	}

	saved, err := m.api.SaveDiscovered(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("banklink: saving discovered subscriptions: %w", err)
	}
	m.repo.Merge(saved)

	// Newly discovered subscriptions get an immediate baseline entry.
	if _, err := m.notifier.Refresh(ctx); err != nil {
		return saved, err
	}
	return saved, nil
}

// FetchBalances fetches linked-account balances. Without a credential it is
// a silent no-op.
func (m *Manager) FetchBalances(ctx context.Context) (json.RawMessage, error) {
	access, ok := m.AccessToken()
	if !ok {
		return nil, nil
	}
	return m.api.AccountBalances(ctx, access)
}

// FetchTransactions fetches raw transactions, optionally restricted to the
// given IDs. Without a credential it is a silent no-op.
func (m *Manager) FetchTransactions(ctx context.Context, transactionIDs []string) (json.RawMessage, error) {
	access, ok := m.AccessToken()
	if !ok {
		return nil, nil
	}
	return m.api.Transactions(ctx, access, transactionIDs)
}

// DeriveCandidates builds one subscription candidate per outflow stream with
// a non-empty merchant name. IDs are synthesized from the merchant and
// stream position, matching the backend's dedup expectations.
func DeriveCandidates(streams []api.OutflowStream) []api.DiscoveredItem {
	var items []api.DiscoveredItem
	for i, stream := range streams {
		if strings.TrimSpace(stream.MerchantName) == "" {
			continue
		}
		items = append(items, api.DiscoveredItem{
			ID:                fmt.Sprintf("plaid-%s-%d", stream.MerchantName, i),
			Name:              stream.MerchantName,
			Description:       stream.Description,
			FirstDate:         stream.FirstDate,
			LastDate:          stream.LastDate,
			Frequency:         stream.Frequency,
			AverageAmount:     stream.AverageAmount.Value(),
			LastAmount:        stream.LastAmount.Value(),
			IsActive:          stream.IsActive,
			PredictedNextDate: stream.PredictedNextDate,
			LastUserModified:  stream.LastUserModified,
			Status:            stream.Status,
		})
	}
	return items
}

func (m *Manager) setStatus(status string) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}
