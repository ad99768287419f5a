package subs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/model"
	"github.com/patcav/subtrack/internal/session"
	"github.com/patcav/subtrack/internal/storage"
)

// testEnv wires a repository against a local server and a signed-in session.
type testEnv struct {
	repo *Repository
	sess *session.Store

	listCalls   atomic.Int64
	deleteCalls atomic.Int64
	detailCalls atomic.Int64
	addCalls    atomic.Int64

	listBody   string
	listStatus int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		listBody:   `[]`,
		listStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /account/my_subscriptions", func(w http.ResponseWriter, r *http.Request) {
		env.listCalls.Add(1)
		w.WriteHeader(env.listStatus)
		_, _ = w.Write([]byte(env.listBody))
	})
	mux.HandleFunc("POST /account/receive-list", func(w http.ResponseWriter, r *http.Request) {
		env.addCalls.Add(1)
		_, _ = w.Write([]byte(`{"data": {"saved_items": []}}`))
	})
	mux.HandleFunc("DELETE /account/subscription/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
		env.deleteCalls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /account/subscription/{id}", func(w http.ResponseWriter, r *http.Request) {
		env.detailCalls.Add(1)
		_, _ = w.Write([]byte(`{"id": "` + r.PathValue("id") + `", "name": "Netflix", "cancel_url": "https://netflix.com/cancel"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	kv, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	client := api.New(api.Config{Origin: srv.URL})
	env.sess = session.New(kv)
	require.NoError(t, env.sess.SignIn("tok"))
	env.repo = New(client, env.sess)
	return env
}

func TestListFetchesOncePerSession(t *testing.T) {
	env := newTestEnv(t)
	env.listBody = `[{"id": "1", "name": "Netflix"}]`

	for range 3 {
		records, err := env.repo.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}
	assert.Equal(t, int64(1), env.listCalls.Load(), "cached list must not refetch")
}

func TestListRefetchesAfterNewSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.repo.List(context.Background())
	require.NoError(t, err)

	// a new sign-in supersedes the session the cache was loaded under
	require.NoError(t, env.sess.SignIn("tok2"))
	_, err = env.repo.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), env.listCalls.Load())
}

func TestListNotSignedIn(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.sess.SignOut())

	_, err := env.repo.List(context.Background())
	assert.ErrorIs(t, err, session.ErrNotSignedIn)
	assert.Zero(t, env.listCalls.Load())
}

func TestRefreshUnauthorizedForcesSignOut(t *testing.T) {
	env := newTestEnv(t)
	env.listStatus = http.StatusUnauthorized

	err := env.repo.Refresh(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)

	_, ok := env.sess.Token()
	assert.False(t, ok, "a rejected call must force sign-out")
}

func TestAddEmptyNameMakesNoRequest(t *testing.T) {
	env := newTestEnv(t)

	assert.ErrorIs(t, env.repo.Add(context.Background(), ""), ErrEmptyName)
	assert.ErrorIs(t, env.repo.Add(context.Background(), "   \t"), ErrEmptyName)
	assert.Zero(t, env.addCalls.Load())
}

func TestAddRefetchesList(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.repo.Add(context.Background(), "  Netflix  "))
	assert.Equal(t, int64(1), env.addCalls.Load())
	assert.Equal(t, int64(1), env.listCalls.Load(), "add triggers a full reload")
}

func TestRemoveMutatesCacheLocally(t *testing.T) {
	env := newTestEnv(t)
	env.listBody = `[{"id": "1", "name": "Netflix"}, {"id": "2", "name": "Hulu"}]`

	_, err := env.repo.List(context.Background())
	require.NoError(t, err)

	require.NoError(t, env.repo.Remove(context.Background(), "1"))

	records := env.repo.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "2", records[0].ID)
	assert.Equal(t, int64(1), env.deleteCalls.Load())
	assert.Equal(t, int64(1), env.listCalls.Load(), "remove must not refetch")
}

func TestRemoveAbsentIDStillIssuesDelete(t *testing.T) {
	env := newTestEnv(t)
	env.listBody = `[{"id": "1", "name": "Netflix"}]`

	_, err := env.repo.List(context.Background())
	require.NoError(t, err)

	require.NoError(t, env.repo.Remove(context.Background(), "nope"))
	assert.Equal(t, int64(1), env.deleteCalls.Load())
	assert.Len(t, env.repo.Records(), 1)
}

func TestDetailsAlwaysRefetches(t *testing.T) {
	env := newTestEnv(t)

	for range 2 {
		detail, err := env.repo.Details(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, "Netflix", detail.Name)
		assert.Equal(t, "https://netflix.com/cancel", detail.CancelURL)
	}
	assert.Equal(t, int64(2), env.detailCalls.Load(), "details are refetched on every request")

	cached, ok := env.repo.CachedDetails("1")
	require.True(t, ok)
	assert.Equal(t, "Netflix", cached.Name)
}

func TestMerge(t *testing.T) {
	env := newTestEnv(t)
	env.listBody = `[{"id": "1", "name": "Netflix"}]`

	_, err := env.repo.List(context.Background())
	require.NoError(t, err)

	env.repo.Merge([]model.SubscriptionRecord{{ID: "2", Name: "Hulu"}})
	env.repo.Merge([]model.SubscriptionRecord{{ID: "1", Name: "Netflix dupe"}})
	env.repo.Merge([]model.SubscriptionRecord{{Name: "no id"}})

	records := env.repo.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Netflix", records[0].Name)
	assert.Equal(t, "Hulu", records[1].Name)
}

func TestPartitionAndTotal(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	env.repo.now = func() time.Time { return now }
	env.listBody = `[
		{"id": "1", "name": "Netflix", "is_active": true, "last_date": "2025-03-01", "average_amount": 9.99},
		{"id": "2", "name": "Gym", "is_active": false, "average_amount": 30},
		{"id": "3", "name": "Old mag", "is_active": true, "last_date": "2024-12-01", "average_amount": 5}
	]`

	_, err := env.repo.List(context.Background())
	require.NoError(t, err)

	active, past := env.repo.Partition()
	assert.Len(t, active, 1)
	assert.Len(t, past, 2)
	assert.Equal(t, "9.99", env.repo.MonthlyTotal().String())
}
