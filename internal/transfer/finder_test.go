package transfer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammattholland/escapebudget/internal/service"
	"github.com/iammattholland/escapebudget/internal/testutil"
	"github.com/iammattholland/escapebudget/internal/transfer"
)

var testDate = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

func TestFindCandidatesExclusions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings", "brokerage")
	ctx := context.Background()

	base := db.SeedTransaction(testutil.NewTransaction("checking", "Transfer to Savings", -100, testDate))

	// Same account as base: excluded even with a pairing amount.
	db.SeedTransaction(testutil.NewTransaction("checking", "Deposit", 100, testDate))

	// Already linked: excluded.
	linked := testutil.NewTransaction("savings", "Transfer", 100, testDate)
	linked.TransferID = "existing-pair"
	db.SeedTransaction(linked)

	// Amount does not pair: excluded.
	db.SeedTransaction(testutil.NewTransaction("savings", "Paycheck", 250, testDate))

	// Valid opposite leg.
	want := db.SeedTransaction(testutil.NewTransaction("savings", "Transfer from Checking", 100, testDate.AddDate(0, 0, 1)))

	finder := transfer.NewFinder(db.Storage)
	candidates, err := finder.FindCandidates(ctx, base, service.DefaultMatchConfig())
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, want.ID, candidates[0].ID)
}

func TestFindCandidatesAmountTolerance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking", "savings")
	ctx := context.Background()

	base := db.SeedTransaction(testutil.NewTransaction("checking", "Wire out", -1000.00, testDate))

	exact := db.SeedTransaction(testutil.NewTransaction("savings", "Wire in exact", 1000.00, testDate))
	withinFee := db.SeedTransaction(testutil.NewTransaction("savings", "Wire in minus fee", 995.00, testDate.AddDate(0, 0, 2)))
	// 2% off the negation: outside the tolerance.
	db.SeedTransaction(testutil.NewTransaction("savings", "Wire in way off", 980.00, testDate))

	finder := transfer.NewFinder(db.Storage)
	candidates, err := finder.FindCandidates(ctx, base, service.DefaultMatchConfig())
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, exact.ID, candidates[0].ID)
	assert.Equal(t, withinFee.ID, candidates[1].ID)
}

func TestFindCandidatesOrdering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("alpha", "beta", "Zeta")
	ctx := context.Background()

	base := db.SeedTransaction(testutil.NewTransaction("alpha", "Transfer out", -50, testDate))

	threeDays := db.SeedTransaction(testutil.NewTransaction("beta", "Transfer in late", 50, testDate.AddDate(0, 0, 3)))
	sameDayZeta := db.SeedTransaction(testutil.NewTransaction("Zeta", "Transfer in", 50, testDate))
	sameDayBeta := db.SeedTransaction(testutil.NewTransaction("beta", "Transfer in", 50, testDate))

	finder := transfer.NewFinder(db.Storage)
	candidates, err := finder.FindCandidates(ctx, base, service.DefaultMatchConfig())
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// Date distance first, then case-insensitive account name.
	assert.Equal(t, sameDayBeta.ID, candidates[0].ID)
	assert.Equal(t, sameDayZeta.ID, candidates[1].ID)
	assert.Equal(t, threeDays.ID, candidates[2].ID)
}

func TestFindCandidatesRejectsInvalidConfig(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	cfg := service.DefaultMatchConfig()
	cfg.MinScore = 1.5

	finder := transfer.NewFinder(db.Storage)
	_, err := finder.FindCandidates(ctx, testutil.NewTransaction("checking", "x", -1, testDate), cfg)
	assert.ErrorIs(t, err, service.ErrInvalidMatchConfig)
}
