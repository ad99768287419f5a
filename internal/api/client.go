// Package api provides the JSON-over-HTTPS client for the subtrack backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patcav/subtrack/internal/model"
)

const (
	// DefaultOrigin is the fixed backend origin. Overridable only for tests
	// and development via Config.
	DefaultOrigin = "https://patcav.shop/api"

	requestTimeout = 15 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

// Config holds client construction options.
type Config struct {
	// Origin replaces DefaultOrigin when non-empty.
	Origin string
	// Timeout replaces the default per-request timeout when positive.
	Timeout time.Duration
}

// Client talks to the subtrack backend. It holds no credentials: session and
// bank-link tokens are owned by their components and passed per call.
type Client struct {
	origin  string
	timeout time.Duration
	http    *http.Client
}

// New creates a backend client.
func New(cfg Config) *Client {
	origin := strings.TrimRight(cfg.Origin, "/")
	if origin == "" {
		origin = DefaultOrigin
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		origin:  origin,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{"username": username, "password": password}
	body, err := c.do(ctx, http.MethodPost, "/account/login", "", payload)
	if err != nil {
		return "", asAuthError(err)
	}
	tok, ok := extractToken(body)
	if !ok {
		return "", &AuthError{Message: "login succeeded but no access token was returned"}
	}
	return tok, nil
}

// Register creates an account and returns the session token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/account/register", "", req)
	if err != nil {
		return "", asAuthError(err)
	}
	tok, ok := extractToken(body)
	if !ok {
		return "", &AuthError{Message: "registration succeeded but no access token was returned"}
	}
	return tok, nil
}

// RequestPasswordReset asks the backend to mail a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/account/request-password-reset", "", map[string]string{"email": email})
	return err
}

// ConfirmPasswordReset completes a reset started from the mailed link.
func (c *Client) ConfirmPasswordReset(ctx context.Context, uid, token, newPassword string) error {
	payload := map[string]string{"uid": uid, "token": token, "new_password": newPassword}
	_, err := c.do(ctx, http.MethodPost, "/account/password-reset-confirm", "", payload)
	return err
}

// MySubscriptions fetches the authenticated subscription list.
func (c *Client) MySubscriptions(ctx context.Context, sessionToken string) ([]model.SubscriptionRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/account/my_subscriptions", sessionToken, nil)
	if err != nil {
		return nil, err
	}
	var raw []rawSubscription
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("api: parsing subscriptions: %w", err)
	}
	records := make([]model.SubscriptionRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, r.toModel())
	}
	return records, nil
}

// AddItems submits user-entered subscription names for persistence and
// returns the records the backend reports as newly saved.
func (c *Client) AddItems(ctx context.Context, names []string) ([]model.SubscriptionRecord, error) {
	return c.receiveList(ctx, names)
}

// SaveDiscovered submits bank-derived subscription candidates for
// persistence and returns the records the backend reports as newly saved.
func (c *Client) SaveDiscovered(ctx context.Context, items []DiscoveredItem) ([]model.SubscriptionRecord, error) {
	return c.receiveList(ctx, items)
}

func (c *Client) receiveList(ctx context.Context, items any) ([]model.SubscriptionRecord, error) {
	body, err := c.do(ctx, http.MethodPost, "/account/receive-list", "", map[string]any{"items": items})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data struct {
			SavedItems []rawSubscription `json:"saved_items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("api: parsing saved items: %w", err)
	}
	saved := make([]model.SubscriptionRecord, 0, len(resp.Data.SavedItems))
	for _, r := range resp.Data.SavedItems {
		saved = append(saved, r.toModel())
	}
	return saved, nil
}

// DeleteSubscription removes one subscription.
func (c *Client) DeleteSubscription(ctx context.Context, sessionToken, id string) error {
	path := fmt.Sprintf("/account/subscription/%s/delete", url.PathEscape(id))
	_, err := c.do(ctx, http.MethodDelete, path, sessionToken, nil)
	return err
}

// SubscriptionDetail fetches the extended fields for one subscription.
func (c *Client) SubscriptionDetail(ctx context.Context, sessionToken, id string) (model.DetailRecord, error) {
	path := fmt.Sprintf("/account/subscription/%s", url.PathEscape(id))
	body, err := c.do(ctx, http.MethodGet, path, sessionToken, nil)
	if err != nil {
		return model.DetailRecord{}, err
	}
	var raw rawDetail
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.DetailRecord{}, fmt.Errorf("api: parsing subscription detail: %w", err)
	}
	return raw.toModel(), nil
}

// SubscriptionAverages fetches per-subscription average amounts and
// predicted next payment dates.
func (c *Client) SubscriptionAverages(ctx context.Context, sessionToken string) ([]model.AverageEntry, error) {
	body, err := c.do(ctx, http.MethodGet, "/account/subscription-averages", sessionToken, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Subscriptions []rawAverage `json:"subscriptions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("api: parsing averages: %w", err)
	}
	entries := make([]model.AverageEntry, 0, len(resp.Subscriptions))
	for _, r := range resp.Subscriptions {
		entries = append(entries, r.toModel())
	}
	return entries, nil
}

// CreateLinkToken fetches a one-time bank-link handle.
func (c *Client) CreateLinkToken(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/account/create_link_token", "", nil)
	if err != nil {
		return "", err
	}
	tok, ok := extractLinkToken(body)
	if !ok {
		return "", fmt.Errorf("api: link token response had no recognized token field")
	}
	return tok, nil
}

// ExchangePublicToken trades the widget's one-time public token for a
// long-lived bank access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/account/exchange_public_token", "", map[string]string{"public_token": publicToken})
	if err != nil {
		return "", err
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("api: parsing token exchange: %w", err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return "", fmt.Errorf("api: token exchange returned no access token")
	}
	return resp.AccessToken, nil
}

// RecurringTransactions fetches the provider's recurring outflow streams.
// mock selects the backend's canned-data mode.
func (c *Client) RecurringTransactions(ctx context.Context, accessToken string, mock bool) ([]OutflowStream, error) {
	path := "/account/get_recurring_transactions"
	if mock {
		path += "?mock=1"
	}
	body, err := c.do(ctx, http.MethodPost, path, "", map[string]string{"access_token": accessToken})
	if err != nil {
		return nil, err
	}
	var resp struct {
		OutflowStreams []OutflowStream `json:"outflow_streams"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("api: parsing recurring transactions: %w", err)
	}
	return resp.OutflowStreams, nil
}

// Transactions fetches raw transactions, optionally restricted to the given
// transaction IDs. The payload is passed through for display untyped.
func (c *Client) Transactions(ctx context.Context, accessToken string, transactionIDs []string) (json.RawMessage, error) {
	payload := map[string]any{"access_token": accessToken}
	if len(transactionIDs) > 0 {
		payload["transaction_ids"] = transactionIDs
	}
	return c.do(ctx, http.MethodPost, "/account/get_transactions", "", payload)
}

// AccountBalances fetches linked-account balances, passed through untyped.
func (c *Client) AccountBalances(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/account/get_account_balances", "", map[string]string{"access_token": accessToken})
}

// RecommendSubscriptions submits the ranked budget request and returns the
// keep/cancel recommendation.
func (c *Client) RecommendSubscriptions(ctx context.Context, sessionToken string, req RecommendRequest) (model.Recommendation, error) {
	body, err := c.do(ctx, http.MethodPost, "/account/recommend_subscriptions_to_keep", sessionToken, req)
	if err != nil {
		return model.Recommendation{}, err
	}
	var raw struct {
		Keep               []json.RawMessage `json:"keep"`
		Cancel             []json.RawMessage `json:"cancel"`
		TotalSubscriptions json.RawMessage   `json:"total_subscriptions"`
		OtherTransactions  json.RawMessage   `json:"other_transactions"`
		AllSpending        json.RawMessage   `json:"all_spending"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Recommendation{}, fmt.Errorf("api: parsing recommendation: %w", err)
	}
	rec := model.Recommendation{}
	for _, id := range raw.Keep {
		rec.Keep = append(rec.Keep, parseID(id))
	}
	for _, id := range raw.Cancel {
		rec.Cancel = append(rec.Cancel, parseID(id))
	}
	if d := parseAmount(raw.TotalSubscriptions); d != nil {
		rec.TotalSubscriptions = *d
	}
	if d := parseAmount(raw.OtherTransactions); d != nil {
		rec.OtherTransactions = *d
	}
	if d := parseAmount(raw.AllSpending); d != nil {
		rec.AllSpending = *d
	}
	return rec, nil
}

// do performs one JSON request. A non-empty bearer token is attached as an
// Authorization header. Non-2xx responses map to StatusError with the body
// retained; unauthorized statuses additionally unwrap to ErrUnauthorized.
func (c *Client) do(ctx context.Context, method, path, bearer string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("api: encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.origin+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/patcav/subtrack/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("api: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, Path: path, Body: string(body)}
	}
	return body, nil
}

// asAuthError converts a failed login/register call into an AuthError with
// the backend's message. Bad credentials come back as 401 with a message
// body; that message wins, with a generic fallback when the body carries
// none.
func asAuthError(err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		if ae := authErrorFromBody([]byte(se.Body)); ae != nil {
			return ae
		}
		if errors.Is(err, ErrUnauthorized) {
			return &AuthError{Message: "invalid username or password"}
		}
		return &AuthError{Message: strings.TrimSpace(se.Body)}
	}
	if errors.Is(err, ErrUnauthorized) {
		return &AuthError{Message: "invalid username or password"}
	}
	return err
}
