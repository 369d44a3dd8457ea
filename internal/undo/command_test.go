package undo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammattholland/escapebudget/internal/common"
	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
	"github.com/iammattholland/escapebudget/internal/testutil"
	"github.com/iammattholland/escapebudget/internal/transfer"
	"github.com/iammattholland/escapebudget/internal/undo"
)

var testDate = time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)

func TestAddTransactionCommandRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking")
	ctx := context.Background()

	template := testutil.NewTransaction("checking", "Lunch", -14.50, testDate)
	cmd := undo.NewAddTransactionCommand(db.Storage, template)
	m := undo.NewManager()

	require.NoError(t, m.Execute(ctx, cmd))
	count, err := db.Storage.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, m.Undo(ctx))
	count, err = db.Storage.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Redo recreates the transaction under a fresh identity.
	require.NoError(t, m.Redo(ctx))
	txns, err := db.Storage.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.NotEqual(t, template.ID, txns[0].ID)
	assert.Equal(t, "Lunch", txns[0].Payee)
	assert.Equal(t, -14.50, txns[0].Amount)
}

func TestDeleteTransactionCommandRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking")
	ctx := context.Background()

	stored := db.SeedTransaction(testutil.NewTransaction("checking", "Groceries", -90, testDate))
	cmd := undo.NewDeleteTransactionCommand(db.Storage, stored.ID)
	m := undo.NewManager()

	require.NoError(t, m.Execute(ctx, cmd))
	_, err := db.Storage.GetTransactionByID(ctx, stored.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Undo recreates the row with equivalent values and a new identity.
	require.NoError(t, m.Undo(ctx))
	txns, err := db.Storage.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.NotEqual(t, stored.ID, txns[0].ID)
	assert.Equal(t, stored.Payee, txns[0].Payee)
	assert.Equal(t, stored.Amount, txns[0].Amount)

	// Redo deletes the recreated row, not the original ID.
	require.NoError(t, m.Redo(ctx))
	count, err := db.Storage.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteTransactionCommandMissingRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	cmd := undo.NewDeleteTransactionCommand(db.Storage, "no-such-id")
	m := undo.NewManager()

	require.Error(t, m.Execute(ctx, cmd))
	assert.False(t, m.CanUndo(), "failed execute is not recorded")
}

func TestUpdateTransactionCommandRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking")
	ctx := context.Background()

	stored := db.SeedTransaction(testutil.NewTransaction("checking", "AMZN Mktp", -32, testDate))

	edited := stored
	edited.Payee = "Amazon"
	edited.Memo = "household"

	m := undo.NewManager()
	require.NoError(t, m.Execute(ctx, undo.NewUpdateTransactionCommand(db.Storage, edited)))

	got, err := db.Storage.GetTransactionByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amazon", got.Payee)
	assert.Equal(t, "household", got.Memo)

	require.NoError(t, m.Undo(ctx))
	got, err = db.Storage.GetTransactionByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "AMZN Mktp", got.Payee)
	assert.Empty(t, got.Memo)

	require.NoError(t, m.Redo(ctx))
	got, err = db.Storage.GetTransactionByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amazon", got.Payee)
}

func TestLinkTransferCommandRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings")
	ctx := context.Background()

	// The outflow leg starts life as a categorized standard transaction;
	// undoing the link must bring all of that back, not just unlink it.
	category := "cat-transfers"
	template := testutil.NewTransaction("checking", "Transfer out", -250, testDate)
	template.CategoryID = &category
	template.Tags = []string{"recurring"}
	base := db.SeedTransaction(template)
	match := db.SeedTransaction(testutil.NewTransaction("savings", "Transfer in", 250, testDate))

	linker := transfer.NewLinker(db.Storage, transfer.NewLearner(db.Storage))
	m := undo.NewManager()

	require.NoError(t, m.Execute(ctx, undo.NewLinkTransferCommand(db.Storage, linker, base.ID, match.ID, true)))
	got, err := db.Storage.GetTransactionByID(ctx, base.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLinkedTransfer())
	assert.Nil(t, got.CategoryID)

	// Undo restores the exact pre-link state of both legs.
	require.NoError(t, m.Undo(ctx))
	got, err = db.Storage.GetTransactionByID(ctx, base.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KindStandard, got.Kind)
	assert.Empty(t, got.TransferID)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, category, *got.CategoryID)
	assert.Equal(t, []string{"recurring"}, got.Tags)

	restored, err := db.Storage.GetTransactionByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KindStandard, restored.Kind)
	assert.Empty(t, restored.TransferID)

	// Redo links again under a fresh transfer ID.
	require.NoError(t, m.Redo(ctx))
	got, err = db.Storage.GetTransactionByID(ctx, base.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLinkedTransfer())
}

func TestUnlinkTransferCommandRestoresSharedID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings")
	ctx := context.Background()

	base := db.SeedTransaction(testutil.NewTransaction("checking", "Transfer out", -80, testDate))
	match := db.SeedTransaction(testutil.NewTransaction("savings", "Transfer in", 80, testDate))

	learner := transfer.NewLearner(db.Storage)
	linker := transfer.NewLinker(db.Storage, learner)
	_, err := linker.Link(ctx, base.ID, match.ID, false)
	require.NoError(t, err)

	originalID := func() string {
		got, err := db.Storage.GetTransactionByID(ctx, base.ID)
		require.NoError(t, err)
		return got.TransferID
	}()
	weightBefore, err := learner.Affinity(ctx, "checking", "savings", model.PayeeBucket(base.Payee))
	require.NoError(t, err)

	m := undo.NewManager()
	require.NoError(t, m.Execute(ctx, undo.NewUnlinkTransferCommand(db.Storage, linker, base.ID)))

	got, err := db.Storage.GetTransactionByID(ctx, base.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TransferID)

	// Undo revives the original shared transfer ID without touching the
	// learned weights.
	require.NoError(t, m.Undo(ctx))
	for _, id := range []string{base.ID, match.ID} {
		got, err := db.Storage.GetTransactionByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, originalID, got.TransferID)
	}

	weightAfter, err := learner.Affinity(ctx, "checking", "savings", model.PayeeBucket(base.Payee))
	require.NoError(t, err)
	assert.Equal(t, weightBefore, weightAfter)
}
