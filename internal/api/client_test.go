package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Origin: srv.URL})
}

func jsonHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestLoginTokenShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"flat access", `{"access": "tok-a"}`, "tok-a"},
		{"nested data.token.access", `{"data": {"token": {"access": "tok-b"}}}`, "tok-b"},
		{"flat token", `{"token": "tok-c"}`, "tok-c"},
		{"access_token", `{"access_token": "tok-d"}`, "tok-d"},
		{"access wins over access_token", `{"access": "tok-a", "access_token": "tok-d"}`, "tok-a"},
		{"nested wins over flat token", `{"data": {"token": {"access": "tok-b"}}, "token": "tok-c"}`, "tok-b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, jsonHandler(http.StatusOK, tt.body))
			tok, err := c.Login(context.Background(), "u", "p")
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok)
		})
	}
}

func TestLoginNoTokenInResponse(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{"detail": "ok"}`))
	_, err := c.Login(context.Background(), "u", "p")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestLoginBadCredentialsNoBodyMessage(t *testing.T) {
	// a 401 whose body carries no recognizable message falls back to the
	// generic credentials error
	c := newTestClient(t, jsonHandler(http.StatusUnauthorized, `{}`))
	_, err := c.Login(context.Background(), "u", "wrong")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid username or password", authErr.Message)
}

func TestLoginBackendMessagePassedThrough(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "400 with message",
			status: http.StatusBadRequest,
			body:   `{"message": "No active account found with the given credentials"}`,
			want:   "No active account found with the given credentials",
		},
		{
			// rejected credentials arrive as 401 and still carry the
			// backend's own text
			name:   "401 with message",
			status: http.StatusUnauthorized,
			body:   `{"message": "Account locked: too many attempts"}`,
			want:   "Account locked: too many attempts",
		},
		{
			name:   "401 with detail",
			status: http.StatusUnauthorized,
			body:   `{"detail": "No active account found with the given credentials"}`,
			want:   "No active account found with the given credentials",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, jsonHandler(tt.status, tt.body))
			_, err := c.Login(context.Background(), "u", "p")

			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.want, authErr.Message)
		})
	}
}

func TestRegisterFieldErrors(t *testing.T) {
	body := `{"username": ["A user with that username already exists."]}`
	c := newTestClient(t, jsonHandler(http.StatusBadRequest, body))
	_, err := c.Register(context.Background(), RegisterRequest{Username: "taken"})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "username")
	assert.Contains(t, authErr.Error(), "already exists")
}

func TestMySubscriptionsSendsBearer(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[{"id": 1, "name": "Netflix", "average_amount": "9.99", "last_date": "2025-03-01"}]`))
	}))

	records, err := c.MySubscriptions(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth)

	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "Netflix", records[0].Name)
	require.NotNil(t, records[0].AverageAmount)
	assert.Equal(t, "9.99", records[0].AverageAmount.String())
}

func TestMySubscriptionsUnauthorized(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusUnauthorized, `{}`))
	_, err := c.MySubscriptions(context.Background(), "stale")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestForbiddenAlsoUnauthorized(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusForbidden, `{}`))
	_, err := c.MySubscriptions(context.Background(), "stale")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestServerErrorKeepsBody(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusInternalServerError, `{"detail": "boom"}`))
	_, err := c.MySubscriptions(context.Background(), "tok")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Contains(t, se.Body, "boom")
}

func TestReceiveList(t *testing.T) {
	var gotBody map[string]any
	body := `{"data": {"saved_items": [{"id": "plaid-Netflix-0", "name": "Netflix"}]}}`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(body))
	}))

	saved, err := c.AddItems(context.Background(), []string{"Netflix"})
	require.NoError(t, err)

	assert.Equal(t, []any{"Netflix"}, gotBody["items"])
	require.Len(t, saved, 1)
	assert.Equal(t, "plaid-Netflix-0", saved[0].ID)
}

func TestCreateLinkTokenKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"snake_case", `{"link_token": "link-sandbox-1"}`, "link-sandbox-1"},
		{"camelCase", `{"linkToken": "link-sandbox-2"}`, "link-sandbox-2"},
		{"snake wins", `{"link_token": "a", "linkToken": "b"}`, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, jsonHandler(http.StatusOK, tt.body))
			tok, err := c.CreateLinkToken(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok)
		})
	}
}

func TestCreateLinkTokenMissing(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{"expiration": "soon"}`))
	_, err := c.CreateLinkToken(context.Background())
	require.Error(t, err)
}

func TestExchangePublicToken(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"access_token": "access-sandbox-9"}`))
	}))

	access, err := c.ExchangePublicToken(context.Background(), "public-abc")
	require.NoError(t, err)
	assert.Equal(t, "public-abc", gotBody["public_token"])
	assert.Equal(t, "access-sandbox-9", access)
}

func TestRecurringTransactionsMockFlag(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"outflow_streams": [{"merchant_name": "Hulu", "average_amount": {"amount": 12.99}}]}`))
	}))

	streams, err := c.RecurringTransactions(context.Background(), "access", true)
	require.NoError(t, err)
	assert.Equal(t, "mock=1", gotQuery)
	require.Len(t, streams, 1)
	assert.Equal(t, "Hulu", streams[0].MerchantName)

	_, err = c.RecurringTransactions(context.Background(), "access", false)
	require.NoError(t, err)
	assert.Empty(t, gotQuery)
}

func TestRecommendSubscriptions(t *testing.T) {
	var gotBody map[string]any
	response := `{
		"keep": [1, "2"],
		"cancel": [3],
		"total_subscriptions": "45.97",
		"other_transactions": 120.5,
		"all_spending": {"amount": 166.47}
	}`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(response))
	}))

	rec, err := c.RecommendSubscriptions(context.Background(), "tok", RecommendRequest{
		Budget:      decimal.RequireFromString("50"),
		AccessToken: "access",
		Ranks:       []string{"2", "1", "3"},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"2", "1", "3"}, gotBody["ranks"])
	assert.Equal(t, "access", gotBody["access_token"])

	assert.Equal(t, []string{"1", "2"}, rec.Keep)
	assert.Equal(t, []string{"3"}, rec.Cancel)
	assert.Equal(t, "45.97", rec.TotalSubscriptions.String())
	assert.Equal(t, "120.5", rec.OtherTransactions.String())
	assert.Equal(t, "166.47", rec.AllSpending.String())
}

func TestDeleteSubscriptionEscapesID(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{}`))
	}))

	err := c.DeleteSubscription(context.Background(), "tok", "plaid-A B-0")
	require.NoError(t, err)
	assert.Equal(t, "/account/subscription/plaid-A%20B-0/delete", gotPath)
}
