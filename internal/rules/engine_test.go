package rules_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/rules"
	"github.com/iammattholland/escapebudget/internal/testutil"
)

var testDate = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func renameRule(name, match, renameTo string) model.AutoRule {
	return model.AutoRule{
		ID:                  name,
		Name:                name,
		IsEnabled:           true,
		MatchPayeeEnabled:   true,
		MatchPayeeValue:     match,
		MatchPayeeCondition: model.PayeeContains,
		ActionRenameEnabled: true,
		ActionRenamePayee:   renameTo,
	}
}

func TestMatchesPayeeConditions(t *testing.T) {
	tests := []struct {
		name      string
		condition model.PayeeCondition
		value     string
		caseSens  bool
		payee     string
		want      bool
	}{
		{name: "contains", condition: model.PayeeContains, value: "coffee", payee: "BLUE BOTTLE COFFEE #42", want: true},
		{name: "contains miss", condition: model.PayeeContains, value: "tea", payee: "BLUE BOTTLE COFFEE", want: false},
		{name: "begins with", condition: model.PayeeBeginsWith, value: "amzn", payee: "AMZN Mktp US", want: true},
		{name: "ends with", condition: model.PayeeEndsWith, value: "fee", payee: "Monthly Service Fee", want: true},
		{name: "equals", condition: model.PayeeEquals, value: "netflix", payee: "Netflix", want: true},
		{name: "case sensitive miss", condition: model.PayeeEquals, value: "netflix", caseSens: true, payee: "Netflix", want: false},
		{name: "case sensitive hit", condition: model.PayeeEquals, value: "Netflix", caseSens: true, payee: "Netflix", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := model.AutoRule{
				MatchPayeeEnabled:   true,
				MatchPayeeValue:     tt.value,
				MatchPayeeCondition: tt.condition,
				MatchPayeeCaseSens:  tt.caseSens,
			}
			txn := model.Transaction{Payee: tt.payee}
			assert.Equal(t, tt.want, rules.Matches(&rule, &txn))
		})
	}
}

func TestMatchesAmountConditions(t *testing.T) {
	value := -50.0
	upper := -10.0

	tests := []struct {
		name      string
		condition model.AmountCondition
		value     *float64
		max       *float64
		amount    float64
		want      bool
	}{
		{name: "none matches everything", condition: model.AmountNone, amount: 123.45, want: true},
		{name: "eq hit", condition: model.AmountEqual, value: &value, amount: -50.0, want: true},
		{name: "eq signed miss", condition: model.AmountEqual, value: &value, amount: 50.0, want: false},
		{name: "gt", condition: model.AmountGreaterThan, value: &value, amount: -20, want: true},
		{name: "lt", condition: model.AmountLessThan, value: &value, amount: -80, want: true},
		{name: "between inclusive lower", condition: model.AmountBetween, value: &value, max: &upper, amount: -50, want: true},
		{name: "between inclusive upper", condition: model.AmountBetween, value: &value, max: &upper, amount: -10, want: true},
		{name: "between outside", condition: model.AmountBetween, value: &value, max: &upper, amount: -5, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := model.AutoRule{
				MatchAmountCondition: tt.condition,
				AmountValue:          tt.value,
				AmountMax:            tt.max,
			}
			txn := model.Transaction{Amount: tt.amount}
			assert.Equal(t, tt.want, rules.Matches(&rule, &txn))
		})
	}
}

func TestMatchesConditionsAreConjunctive(t *testing.T) {
	account := "checking"
	value := -100.0

	rule := model.AutoRule{
		MatchPayeeEnabled:    true,
		MatchPayeeValue:      "gym",
		MatchPayeeCondition:  model.PayeeContains,
		MatchAccountID:       &account,
		MatchAmountCondition: model.AmountLessThan,
		AmountValue:          &value,
	}

	hit := model.Transaction{Payee: "Gym Membership", AccountID: "checking", Amount: -150}
	assert.True(t, rules.Matches(&rule, &hit))

	wrongAccount := hit
	wrongAccount.AccountID = "savings"
	assert.False(t, rules.Matches(&rule, &wrongAccount))

	wrongAmount := hit
	wrongAmount.Amount = -50
	assert.False(t, rules.Matches(&rule, &wrongAmount))
}

func TestApplyRunsRulesInOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := rules.NewEngine(db.Storage)
	ctx := context.Background()

	first := renameRule("first", "venmo", "Intermediate")
	first.Order = 1
	second := renameRule("second", "intermediate", "Final Payee")
	second.Order = 2

	txn := testutil.NewTransaction("checking", "VENMO *PAYMENT", -25, testDate)
	// Deliberately passed out of order.
	events, err := engine.Apply(ctx, []model.AutoRule{second, first}, &txn)
	require.NoError(t, err)

	assert.Equal(t, "Final Payee", txn.Payee, "later rule sees the earlier rule's rename")
	assert.Len(t, events, 2)
}

func TestApplySkipsDisabledRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := rules.NewEngine(db.Storage)
	ctx := context.Background()

	rule := renameRule("disabled", "coffee", "Coffee Shop")
	rule.IsEnabled = false

	txn := testutil.NewTransaction("checking", "COFFEE BAR", -5, testDate)
	events, err := engine.Apply(ctx, []model.AutoRule{rule}, &txn)
	require.NoError(t, err)

	assert.Empty(t, events)
	assert.Equal(t, "COFFEE BAR", txn.Payee)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := rules.NewEngine(db.Storage)
	ctx := context.Background()

	category := "cat-dining"
	status := model.StatusCleared
	rule := model.AutoRule{
		ID:                    "full",
		Name:                  "full",
		IsEnabled:             true,
		MatchPayeeEnabled:     true,
		MatchPayeeValue:       "doordash",
		MatchPayeeCondition:   model.PayeeContains,
		ActionRenameEnabled:   true,
		ActionRenamePayee:     "DoorDash",
		ActionCategoryEnabled: true,
		ActionCategoryID:      &category,
		ActionTagIDs:          []string{"delivery"},
		ActionMemoEnabled:     true,
		ActionMemo:            "auto-categorized",
		ActionMemoAppend:      true,
		ActionStatusEnabled:   true,
		ActionStatus:          &status,
	}

	txn := testutil.NewTransaction("checking", "DOORDASH*BURRITO", -31.50, testDate)
	ruleset := []model.AutoRule{rule}

	events, err := engine.Apply(ctx, ruleset, &txn)
	require.NoError(t, err)
	require.Len(t, events, 5, "every field changed on first application")

	after := txn
	events, err = engine.Apply(ctx, ruleset, &txn)
	require.NoError(t, err)
	assert.Empty(t, events, "second application changes nothing")
	assert.Equal(t, after, txn)

	assert.Equal(t, "DoorDash", txn.Payee)
	assert.Equal(t, []string{"delivery"}, txn.Tags)
	assert.Equal(t, "auto-categorized", txn.Memo)
	assert.Equal(t, model.StatusCleared, txn.Status)
}

func TestApplyTagsAccumulateAcrossRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := rules.NewEngine(db.Storage)
	ctx := context.Background()

	tagA := model.AutoRule{
		ID: "tag-a", Name: "tag-a", IsEnabled: true, Order: 1,
		MatchPayeeEnabled: true, MatchPayeeValue: "airline", MatchPayeeCondition: model.PayeeContains,
		ActionTagIDs: []string{"travel"},
	}
	tagB := model.AutoRule{
		ID: "tag-b", Name: "tag-b", IsEnabled: true, Order: 2,
		MatchPayeeEnabled: true, MatchPayeeValue: "airline", MatchPayeeCondition: model.PayeeContains,
		ActionTagIDs: []string{"reimbursable", "travel"},
	}

	txn := testutil.NewTransaction("credit", "UNITED AIRLINE", -400, testDate)
	events, err := engine.Apply(ctx, []model.AutoRule{tagA, tagB}, &txn)
	require.NoError(t, err)

	assert.Equal(t, []string{"travel", "reimbursable"}, txn.Tags, "tags union without duplicates")
	assert.Len(t, events, 2)
}

func TestApplyMemoAppend(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := rules.NewEngine(db.Storage)
	ctx := context.Background()

	rule := model.AutoRule{
		ID: "memo", Name: "memo", IsEnabled: true,
		MatchPayeeEnabled: true, MatchPayeeValue: "rent", MatchPayeeCondition: model.PayeeContains,
		ActionMemoEnabled: true, ActionMemo: "recurring", ActionMemoAppend: true,
	}

	txn := testutil.NewTransaction("checking", "RENT PAYMENT", -1800, testDate)
	txn.Memo = "apartment 4B"

	_, err := engine.Apply(ctx, []model.AutoRule{rule}, &txn)
	require.NoError(t, err)
	assert.Equal(t, "apartment 4B recurring", txn.Memo)

	// Appending again is a no-op.
	events, err := engine.Apply(ctx, []model.AutoRule{rule}, &txn)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, "apartment 4B recurring", txn.Memo)
}

func TestPreviewMatchesDoesNotMutate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts("checking")
	engine := rules.NewEngine(db.Storage)
	ctx := context.Background()

	stored := db.SeedTransaction(testutil.NewTransaction("checking", "SPOTIFY", -11, testDate))
	db.SeedTransaction(testutil.NewTransaction("checking", "GROCERY", -80, testDate))

	rule := renameRule("preview", "spotify", "Spotify")
	matches, err := engine.PreviewMatches(ctx, &rule, 10)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, stored.ID, matches[0].ID)

	// The stored row is untouched.
	got, err := db.Storage.GetTransactionByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "SPOTIFY", got.Payee)
}
