package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/model"
	"github.com/patcav/subtrack/internal/session"
	"github.com/patcav/subtrack/internal/storage"
)

type fakeCreds struct {
	token string
}

func (f fakeCreds) AccessToken() (string, bool) {
	return f.token, f.token != ""
}

type testEnv struct {
	wf   *Workflow
	sess *session.Store

	status   int
	body     string
	lastReq  map[string]any
	requests int
}

func newTestEnv(t *testing.T, creds CredentialSource) *testEnv {
	t.Helper()
	env := &testEnv{
		status: http.StatusOK,
		body:   `{"keep": [], "cancel": []}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.requests++
		env.lastReq = nil
		_ = json.NewDecoder(r.Body).Decode(&env.lastReq)
		w.WriteHeader(env.status)
		_, _ = w.Write([]byte(env.body))
	}))
	t.Cleanup(srv.Close)

	kv, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	env.sess = session.New(kv)
	if err := env.sess.SignIn("tok"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	env.wf = New(api.New(api.Config{Origin: srv.URL}), env.sess, creds)
	return env
}

func active(ids ...string) []model.SubscriptionRecord {
	out := make([]model.SubscriptionRecord, len(ids))
	for i, id := range ids {
		out[i] = model.SubscriptionRecord{ID: id, Name: "sub-" + id, IsActive: true}
	}
	return out
}

func wantValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	return ve
}

func TestBeginRejectsBadBudget(t *testing.T) {
	for _, input := range []string{"", "  ", "abc", "0", "-5", "0.00"} {
		env := newTestEnv(t, fakeCreds{token: "access"})
		wantValidation(t, env.wf.Begin(input))
		if got := env.wf.State(); got != StateIdle {
			t.Errorf("Begin(%q) left state %s, want idle", input, got)
		}
	}
}

func TestBeginRequiresCredentialAndSession(t *testing.T) {
	env := newTestEnv(t, fakeCreds{})
	wantValidation(t, env.wf.Begin("50"))
	if env.wf.State() != StateIdle {
		t.Errorf("state = %s, want idle", env.wf.State())
	}

	env = newTestEnv(t, fakeCreds{token: "access"})
	if err := env.sess.SignOut(); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	wantValidation(t, env.wf.Begin("50"))
	if env.wf.State() != StateIdle {
		t.Errorf("state = %s, want idle", env.wf.State())
	}
}

func TestHappyPath(t *testing.T) {
	env := newTestEnv(t, fakeCreds{token: "access"})
	env.body = `{"keep": ["b"], "cancel": ["a", "c"], "total_subscriptions": 30}`

	if err := env.wf.Begin("49.99"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if env.wf.State() != StateCollectingBudget {
		t.Fatalf("state = %s, want collecting_budget", env.wf.State())
	}

	if err := env.wf.StartRanking(active("a", "b", "c")); err != nil {
		t.Fatalf("StartRanking() error = %v", err)
	}
	for id, rank := range map[string]string{"a": "2", "b": "1", "c": "3"} {
		if err := env.wf.SetRank(id, rank); err != nil {
			t.Fatalf("SetRank(%s) error = %v", id, err)
		}
	}

	rec, err := env.wf.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if env.wf.State() != StateResolved {
		t.Errorf("state = %s, want resolved", env.wf.State())
	}

	// rank 1 goes first in the submitted order
	wantRanks := []any{"b", "a", "c"}
	gotRanks, _ := env.lastReq["ranks"].([]any)
	if len(gotRanks) != 3 {
		t.Fatalf("submitted ranks = %v, want %v", gotRanks, wantRanks)
	}
	for i := range wantRanks {
		if gotRanks[i] != wantRanks[i] {
			t.Errorf("ranks[%d] = %v, want %v", i, gotRanks[i], wantRanks[i])
		}
	}
	if env.lastReq["access_token"] != "access" {
		t.Errorf("access_token = %v, want access", env.lastReq["access_token"])
	}

	if len(rec.Keep) != 1 || rec.Keep[0] != "b" {
		t.Errorf("Keep = %v, want [b]", rec.Keep)
	}
	if got, ok := env.wf.Result(); !ok || len(got.Cancel) != 2 {
		t.Errorf("Result() = %v, %v", got, ok)
	}
}

func TestSubmitRejectsBadRankSets(t *testing.T) {
	tests := []struct {
		name  string
		ranks map[string]string
	}{
		{"duplicate", map[string]string{"a": "1", "b": "2", "c": "2"}},
		{"shifted range", map[string]string{"a": "2", "b": "3", "c": "4"}},
		{"gap", map[string]string{"a": "1", "b": "2", "c": "4"}},
		{"missing", map[string]string{"a": "1", "b": "2", "c": ""}},
		{"not a number", map[string]string{"a": "1", "b": "2", "c": "third"}},
		{"zero based", map[string]string{"a": "0", "b": "1", "c": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, fakeCreds{token: "access"})
			if err := env.wf.Begin("50"); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			if err := env.wf.StartRanking(active("a", "b", "c")); err != nil {
				t.Fatalf("StartRanking() error = %v", err)
			}
			for id, rank := range tt.ranks {
				_ = env.wf.SetRank(id, rank)
			}

			_, err := env.wf.Submit(context.Background())
			wantValidation(t, err)
			if env.requests != 0 {
				t.Error("invalid ranks must not reach the network")
			}
			if env.wf.State() != StateCollectingRanks {
				t.Errorf("state = %s, want collecting_ranks for a retry", env.wf.State())
			}
		})
	}
}

func TestStartRankingWithNoActive(t *testing.T) {
	env := newTestEnv(t, fakeCreds{token: "access"})
	if err := env.wf.Begin("50"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	wantValidation(t, env.wf.StartRanking(nil))
	if env.wf.State() != StateIdle {
		t.Errorf("state = %s, want idle", env.wf.State())
	}
}

func TestSetRankUnknownID(t *testing.T) {
	env := newTestEnv(t, fakeCreds{token: "access"})
	if err := env.wf.Begin("50"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := env.wf.StartRanking(active("a")); err != nil {
		t.Fatalf("StartRanking() error = %v", err)
	}
	wantValidation(t, env.wf.SetRank("zzz", "1"))
}

func TestSubmitUnauthorized(t *testing.T) {
	env := newTestEnv(t, fakeCreds{token: "access"})
	env.status = http.StatusUnauthorized

	if err := env.wf.Begin("50"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := env.wf.StartRanking(active("a")); err != nil {
		t.Fatalf("StartRanking() error = %v", err)
	}
	if err := env.wf.SetRank("a", "1"); err != nil {
		t.Fatalf("SetRank() error = %v", err)
	}

	_, err := env.wf.Submit(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("Submit() error = %v, want ErrUnauthorized", err)
	}
	if env.wf.State() != StateIdle {
		t.Errorf("state = %s, want idle after forced sign-out", env.wf.State())
	}
	if _, ok := env.sess.Token(); ok {
		t.Error("session survived an unauthorized submission")
	}
}

func TestSubmitServerError(t *testing.T) {
	env := newTestEnv(t, fakeCreds{token: "access"})
	env.status = http.StatusInternalServerError
	env.body = `{"detail": "boom"}`

	if err := env.wf.Begin("50"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := env.wf.StartRanking(active("a")); err != nil {
		t.Fatalf("StartRanking() error = %v", err)
	}
	if err := env.wf.SetRank("a", "1"); err != nil {
		t.Fatalf("SetRank() error = %v", err)
	}

	if _, err := env.wf.Submit(context.Background()); err == nil {
		t.Fatal("Submit() succeeded against a failing backend")
	}
	if env.wf.State() != StateFailed {
		t.Fatalf("state = %s, want failed", env.wf.State())
	}
	if _, ok := env.wf.Result(); ok {
		t.Error("Result() present after failure")
	}

	// a failed flow can be restarted from scratch
	env.status = http.StatusOK
	env.body = `{"keep": ["a"], "cancel": []}`
	if err := env.wf.Begin("50"); err != nil {
		t.Fatalf("Begin() after failure error = %v", err)
	}
	if env.wf.State() != StateCollectingBudget {
		t.Errorf("state = %s, want collecting_budget", env.wf.State())
	}
}

func TestAbandon(t *testing.T) {
	env := newTestEnv(t, fakeCreds{token: "access"})
	if err := env.wf.Begin("50"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := env.wf.StartRanking(active("a", "b")); err != nil {
		t.Fatalf("StartRanking() error = %v", err)
	}

	env.wf.Abandon()
	if env.wf.State() != StateIdle {
		t.Errorf("state = %s, want idle", env.wf.State())
	}
	if env.requests != 0 {
		t.Error("Abandon() touched the network")
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		StateIdle:             "idle",
		StateCollectingBudget: "collecting_budget",
		StateCollectingRanks:  "collecting_ranks",
		StateSubmitting:       "submitting",
		StateResolved:         "resolved",
		StateFailed:           "failed",
	}
	for s, name := range want {
		if got := s.String(); got != name {
			t.Errorf("State(%d).String() = %q, want %q", s, got, name)
		}
	}
}
