// Package workflow drives the ranked budget recommendation flow as an
// explicit state machine, independent of any rendering concern.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/model"
	"github.com/patcav/subtrack/internal/session"
)

// State is the workflow position.
type State int

const (
	StateIdle State = iota
	StateCollectingBudget
	StateCollectingRanks
	StateSubmitting
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollectingBudget:
		return "collecting_budget"
	case StateCollectingRanks:
		return "collecting_ranks"
	case StateSubmitting:
		return "submitting"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ValidationError is a client-side rejection. It blocks the transition and
// never reaches the network.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "workflow: " + e.Reason
}

// CredentialSource supplies the bank-link credential the submission needs.
type CredentialSource interface {
	AccessToken() (string, bool)
}

// Workflow is one short-lived recommendation flow. It holds no state outside
// its own lifetime; abandoning it discards everything without side effects.
type Workflow struct {
	api     *api.Client
	session *session.Store
	creds   CredentialSource

	state  State
	budget decimal.Decimal
	active []model.SubscriptionRecord
	ranks  map[string]string
	result *model.Recommendation
}

// New creates an idle workflow.
func New(client *api.Client, sess *session.Store, creds CredentialSource) *Workflow {
	return &Workflow{
		api:     client,
		session: sess,
		creds:   creds,
		state:   StateIdle,
	}
}

// State returns the current position.
func (w *Workflow) State() State {
	return w.state
}

// Begin validates the user-supplied budget and enters budget collection.
// A malformed budget, a missing bank-link credential, or a missing session
// leave the workflow in Idle.
func (w *Workflow) Begin(budgetInput string) error {
	if w.state != StateIdle && w.state != StateResolved && w.state != StateFailed {
		return &ValidationError{Reason: fmt.Sprintf("cannot begin from state %s", w.state)}
	}
	w.reset()

	budget, err := decimal.NewFromString(strings.TrimSpace(budgetInput))
	if err != nil || !budget.IsPositive() {
		return &ValidationError{Reason: "budget must be a positive number"}
	}
	if _, ok := w.creds.AccessToken(); !ok {
		return &ValidationError{Reason: "no linked bank account"}
	}
	if _, ok := w.session.Token(); !ok {
		return &ValidationError{Reason: "not signed in"}
	}

	w.budget = budget
	w.state = StateCollectingBudget
	return nil
}

// StartRanking snapshots the active records and opens one empty rank slot
// per record.
func (w *Workflow) StartRanking(active []model.SubscriptionRecord) error {
	if w.state != StateCollectingBudget {
		return &ValidationError{Reason: fmt.Sprintf("cannot start ranking from state %s", w.state)}
	}
	if len(active) == 0 {
		w.reset()
		return &ValidationError{Reason: "no active subscriptions to rank"}
	}

	w.active = active
	w.ranks = make(map[string]string, len(active))
	for _, rec := range active {
		w.ranks[rec.ID] = ""
	}
	w.state = StateCollectingRanks
	return nil
}

// SetRank records the raw rank input for one subscription.
func (w *Workflow) SetRank(id, value string) error {
	if w.state != StateCollectingRanks {
		return &ValidationError{Reason: fmt.Sprintf("cannot set rank in state %s", w.state)}
	}
	if _, ok := w.ranks[id]; !ok {
		return &ValidationError{Reason: "unknown subscription id " + id}
	}
	w.ranks[id] = value
	return nil
}

// Submit validates the collected ranks and posts the recommendation request.
// Validation failures keep the workflow in rank collection. An unauthorized
// response forces sign-out and aborts to Idle; any other failure ends in
// Failed with nothing partial retained.
func (w *Workflow) Submit(ctx context.Context) (*model.Recommendation, error) {
	if w.state != StateCollectingRanks {
		return nil, &ValidationError{Reason: fmt.Sprintf("cannot submit from state %s", w.state)}
	}

	orderedIDs, err := orderRanks(w.active, w.ranks)
	if err != nil {
		return nil, err
	}

	token, ok := w.session.Token()
	if !ok {
		w.reset()
		return nil, session.ErrNotSignedIn
	}
	access, ok := w.creds.AccessToken()
	if !ok {
		w.reset()
		return nil, &ValidationError{Reason: "no linked bank account"}
	}

	w.state = StateSubmitting
	rec, err := w.api.RecommendSubscriptions(ctx, token, api.RecommendRequest{
		Budget:      w.budget,
		AccessToken: access,
		Ranks:       orderedIDs,
	})
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = w.session.SignOut()
			w.reset()
			return nil, err
		}
		w.state = StateFailed
		w.budget = decimal.Zero
		w.active = nil
		w.ranks = nil
		return nil, err
	}

	w.result = &rec
	w.state = StateResolved
	return &rec, nil
}

// Result returns the resolved recommendation, if any.
func (w *Workflow) Result() (*model.Recommendation, bool) {
	if w.state != StateResolved || w.result == nil {
		return nil, false
	}
	return w.result, true
}

// Abandon discards the collected budget and ranks and returns to Idle.
func (w *Workflow) Abandon() {
	w.reset()
}

func (w *Workflow) reset() {
	w.state = StateIdle
	w.budget = decimal.Zero
	w.active = nil
	w.ranks = nil
	w.result = nil
}

// orderRanks checks that the rank inputs form a dense permutation of 1..N
// over the active records and returns the ids ordered rank 1 first.
func orderRanks(active []model.SubscriptionRecord, ranks map[string]string) ([]string, error) {
	n := len(active)

	type ranked struct {
		id   string
		rank int
	}
	out := make([]ranked, 0, n)
	seen := make(map[int]bool, n)

	for _, rec := range active {
		raw := strings.TrimSpace(ranks[rec.ID])
		if raw == "" {
			return nil, &ValidationError{Reason: fmt.Sprintf("missing rank for %s", rec.Name)}
		}
		rank, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("rank for %s is not a whole number", rec.Name)}
		}
		seen[rank] = true
		out = append(out, ranked{id: rec.ID, rank: rank})
	}

	if len(seen) != n {
		return nil, &ValidationError{Reason: "each subscription needs a distinct rank"}
	}
	minRank, maxRank := out[0].rank, out[0].rank
	for _, r := range out[1:] {
		if r.rank < minRank {
			minRank = r.rank
		}
		if r.rank > maxRank {
			maxRank = r.rank
		}
	}
	if minRank != 1 || maxRank != n {
		return nil, &ValidationError{Reason: fmt.Sprintf("ranks must run from 1 to %d with no gaps", n)}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	ids := make([]string, n)
	for i, r := range out {
		ids[i] = r.id
	}
	return ids, nil
}
