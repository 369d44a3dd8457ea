package transfer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
	"github.com/iammattholland/escapebudget/internal/testutil"
	"github.com/iammattholland/escapebudget/internal/transfer"
)

func newScorer(db *testutil.TestDB) *transfer.Scorer {
	return transfer.NewScorer(db.Storage, transfer.NewLearner(db.Storage))
}

func TestComputeSuggestionsScoring(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings")
	ctx := context.Background()

	out := testutil.NewTransaction("checking", "Transfer out", -200, testDate)
	in := testutil.NewTransaction("savings", "Transfer in", 200, testDate)

	suggestions, err := newScorer(db).ComputeSuggestions(ctx, []model.Transaction{out, in}, service.DefaultMatchConfig())
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.Equal(t, out.ID, s.BaseID, "debit leg is the base")
	assert.Equal(t, in.ID, s.MatchID)
	assert.Equal(t, 200.0, s.Amount)
	assert.Equal(t, 0, s.DaysApart)
	// Exact amounts same day, no learned affinity: amount and date components
	// at full weight.
	assert.InDelta(t, 0.85, s.Score, 1e-9)
}

func TestComputeSuggestionsGreedyDedup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings", "brokerage")
	ctx := context.Background()

	out := testutil.NewTransaction("checking", "Transfer out", -100, testDate)
	sameDay := testutil.NewTransaction("savings", "Transfer in", 100, testDate)
	nextDay := testutil.NewTransaction("brokerage", "Transfer in", 100, testDate.AddDate(0, 0, 1))

	suggestions, err := newScorer(db).ComputeSuggestions(ctx,
		[]model.Transaction{out, sameDay, nextDay}, service.DefaultMatchConfig())
	require.NoError(t, err)

	// Both inflows pair with the single outflow, but each transaction may be
	// claimed once: only the better pair survives.
	require.Len(t, suggestions, 1)
	assert.Equal(t, out.ID, suggestions[0].BaseID)
	assert.Equal(t, sameDay.ID, suggestions[0].MatchID)
}

func TestComputeSuggestionsDeterminism(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("a", "b", "c", "d")
	ctx := context.Background()

	pool := []model.Transaction{
		testutil.NewTransaction("a", "out one", -75, testDate),
		testutil.NewTransaction("b", "in one", 75, testDate.AddDate(0, 0, 1)),
		testutil.NewTransaction("c", "out two", -75, testDate.AddDate(0, 0, 1)),
		testutil.NewTransaction("d", "in two", 75, testDate),
	}

	scorer := newScorer(db)
	first, err := scorer.ComputeSuggestions(ctx, pool, service.DefaultMatchConfig())
	require.NoError(t, err)
	require.NotEmpty(t, first)

	for i := 0; i < 5; i++ {
		again, err := scorer.ComputeSuggestions(ctx, pool, service.DefaultMatchConfig())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeSuggestionsRespectsTolerances(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings")
	ctx := context.Background()
	cfg := service.DefaultMatchConfig()

	tests := []struct {
		name string
		pool []model.Transaction
	}{
		{
			name: "amount difference above cap",
			pool: []model.Transaction{
				testutil.NewTransaction("checking", "out", -100.00, testDate),
				testutil.NewTransaction("savings", "in", 98.00, testDate),
			},
		},
		{
			name: "too many days apart",
			pool: []model.Transaction{
				testutil.NewTransaction("checking", "out", -100, testDate),
				testutil.NewTransaction("savings", "in", 100, testDate.AddDate(0, 0, cfg.MaxDaysApart+1)),
			},
		},
		{
			name: "same account",
			pool: []model.Transaction{
				testutil.NewTransaction("checking", "out", -100, testDate),
				testutil.NewTransaction("checking", "in", 100, testDate),
			},
		},
		{
			name: "already linked leg",
			pool: []model.Transaction{
				testutil.NewTransaction("checking", "out", -100, testDate),
				func() model.Transaction {
					txn := testutil.NewTransaction("savings", "in", 100, testDate)
					txn.TransferID = "claimed"
					return txn
				}(),
			},
		},
	}

	scorer := newScorer(db)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions, err := scorer.ComputeSuggestions(ctx, tt.pool, cfg)
			require.NoError(t, err)
			assert.Empty(t, suggestions)
		})
	}
}

func TestComputeSuggestionsMinScoreFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings")
	ctx := context.Background()

	// At the edge of both tolerances the amount and date components collapse
	// to zero and the pair cannot reach the default minimum score.
	cfg := service.DefaultMatchConfig()
	pool := []model.Transaction{
		testutil.NewTransaction("checking", "out", -100.00, testDate),
		testutil.NewTransaction("savings", "in", 99.00, testDate.AddDate(0, 0, cfg.MaxDaysApart)),
	}

	suggestions, err := newScorer(db).ComputeSuggestions(ctx, pool, cfg)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestComputeSuggestionsLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("a", "b")
	ctx := context.Background()

	var pool []model.Transaction
	for i := 0; i < 6; i++ {
		date := testDate.AddDate(0, 0, i*30)
		pool = append(pool,
			testutil.NewTransaction("a", "out", -float64(10+i), date),
			testutil.NewTransaction("b", "in", float64(10+i), date),
		)
	}

	cfg := service.DefaultMatchConfig()
	cfg.Limit = 2

	suggestions, err := newScorer(db).ComputeSuggestions(ctx, pool, cfg)
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
}

func TestComputeSuggestionsAffinityBoost(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings")
	ctx := context.Background()

	out := testutil.NewTransaction("checking", "Transfer to Savings", -300, testDate)
	in := testutil.NewTransaction("savings", "Transfer from Checking", 300, testDate)

	learner := transfer.NewLearner(db.Storage)
	scorer := transfer.NewScorer(db.Storage, learner)

	before, err := scorer.ComputeSuggestions(ctx, []model.Transaction{out, in}, service.DefaultMatchConfig())
	require.NoError(t, err)
	require.Len(t, before, 1)

	// A manual confirmation for the same account pair and payee bucket
	// raises subsequent scores.
	require.NoError(t, learner.LearnFromConfirmation(ctx, out, in, false))

	after, err := scorer.ComputeSuggestions(ctx, []model.Transaction{out, in}, service.DefaultMatchConfig())
	require.NoError(t, err)
	require.Len(t, after, 1)

	assert.Greater(t, after[0].Score, before[0].Score)
	assert.InDelta(t, 0.15*0.20, after[0].Score-before[0].Score, 1e-9)
}

// failingWeightStore wraps a working store but fails every affinity read.
type failingWeightStore struct {
	service.Storage
}

var errWeightRead = errors.New("weight table unavailable")

func (s *failingWeightStore) GetTransferWeight(context.Context, string, string, string) (*model.TransferWeight, error) {
	return nil, errWeightRead
}

func TestComputeSuggestionsSurfacesWeightReadError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings")
	ctx := context.Background()

	store := &failingWeightStore{Storage: db.Storage}
	scorer := transfer.NewScorer(store, transfer.NewLearner(store))

	out := testutil.NewTransaction("checking", "Transfer out", -200, testDate)
	in := testutil.NewTransaction("savings", "Transfer in", 200, testDate)

	_, err := scorer.ComputeSuggestions(ctx, []model.Transaction{out, in}, service.DefaultMatchConfig())
	assert.ErrorIs(t, err, errWeightRead)
}
