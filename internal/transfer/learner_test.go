package transfer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/testutil"
	"github.com/iammattholland/escapebudget/internal/transfer"
)

func learnerFixture(t *testing.T) (*transfer.Learner, model.Transaction, model.Transaction) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	debit := testutil.NewTransaction("checking", "Transfer to Savings", -100, testDate)
	credit := testutil.NewTransaction("savings", "Transfer from Checking", 100, testDate)
	return transfer.NewLearner(db.Storage), debit, credit
}

func affinityOf(t *testing.T, learner *transfer.Learner, debit, credit model.Transaction) float64 {
	t.Helper()
	w, err := learner.Affinity(context.Background(), debit.AccountID, credit.AccountID, model.PayeeBucket(debit.Payee))
	require.NoError(t, err)
	return w
}

func TestLearnerUntrainedKeyReadsZero(t *testing.T) {
	learner, debit, credit := learnerFixture(t)
	assert.Zero(t, affinityOf(t, learner, debit, credit))
}

func TestLearnerConfirmationIncrements(t *testing.T) {
	ctx := context.Background()
	learner, debit, credit := learnerFixture(t)

	require.NoError(t, learner.LearnFromConfirmation(ctx, debit, credit, true))
	assert.InDelta(t, 0.10, affinityOf(t, learner, debit, credit), 1e-9)

	require.NoError(t, learner.LearnFromConfirmation(ctx, debit, credit, true))
	assert.InDelta(t, 0.20, affinityOf(t, learner, debit, credit), 1e-9)
}

func TestLearnerManualConfirmationEarnsLargerIncrement(t *testing.T) {
	ctx := context.Background()
	learner, debit, credit := learnerFixture(t)

	require.NoError(t, learner.LearnFromConfirmation(ctx, debit, credit, false))
	assert.InDelta(t, 0.20, affinityOf(t, learner, debit, credit), 1e-9)
}

func TestLearnerRejectionDecrements(t *testing.T) {
	ctx := context.Background()
	learner, debit, credit := learnerFixture(t)

	require.NoError(t, learner.LearnFromConfirmation(ctx, debit, credit, false))
	require.NoError(t, learner.LearnFromRejection(ctx, debit, credit, true))
	assert.InDelta(t, 0.05, affinityOf(t, learner, debit, credit), 1e-9)
}

func TestLearnerWeightClampedToUnitRange(t *testing.T) {
	ctx := context.Background()
	learner, debit, credit := learnerFixture(t)

	// Never above 1.0.
	for i := 0; i < 8; i++ {
		require.NoError(t, learner.LearnFromConfirmation(ctx, debit, credit, false))
	}
	assert.InDelta(t, 1.0, affinityOf(t, learner, debit, credit), 1e-9)

	// Never below zero.
	for i := 0; i < 10; i++ {
		require.NoError(t, learner.LearnFromRejection(ctx, debit, credit, true))
	}
	assert.Zero(t, affinityOf(t, learner, debit, credit))
}

func TestLearnerRejectionWithoutSuggestionIsNoOp(t *testing.T) {
	ctx := context.Background()
	learner, debit, credit := learnerFixture(t)

	require.NoError(t, learner.LearnFromConfirmation(ctx, debit, credit, true))
	require.NoError(t, learner.LearnFromRejection(ctx, debit, credit, false))
	assert.InDelta(t, 0.10, affinityOf(t, learner, debit, credit), 1e-9)
}

func TestLearnerKeysAreDirectionalAndBucketed(t *testing.T) {
	ctx := context.Background()
	learner, debit, credit := learnerFixture(t)

	require.NoError(t, learner.LearnFromConfirmation(ctx, debit, credit, true))

	// Reversed direction is a distinct key.
	reversed, err := learner.Affinity(ctx, credit.AccountID, debit.AccountID, model.PayeeBucket(debit.Payee))
	require.NoError(t, err)
	assert.Zero(t, reversed)

	// A different payee bucket is a distinct key.
	other, err := learner.Affinity(ctx, debit.AccountID, credit.AccountID, "wire outgoing fee")
	require.NoError(t, err)
	assert.Zero(t, other)
}
