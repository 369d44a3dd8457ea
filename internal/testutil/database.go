// Package testutil provides shared helpers for tests that need a real
// database: in-memory SQLite setup with migrations, plus fixture builders
// for accounts and transactions.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
	"github.com/iammattholland/escapebudget/internal/storage"
)

// TestDB wraps a migrated in-memory database for a single test.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory database, runs migrations, and
// registers cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedAccounts saves the named accounts, using the name as the ID.
func (db *TestDB) SeedAccounts(names ...string) {
	db.t.Helper()
	ctx := context.Background()
	for _, name := range names {
		account := model.Account{
			ID:        name,
			Name:      name,
			IsActive:  true,
			CreatedAt: time.Now(),
		}
		if err := db.Storage.SaveAccount(ctx, &account); err != nil {
			db.t.Fatalf("failed to seed account %q: %v", name, err)
		}
	}
}

// SeedTransaction saves the transaction, filling in an ID and hash when
// missing, and returns the stored value.
func (db *TestDB) SeedTransaction(txn model.Transaction) model.Transaction {
	db.t.Helper()
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Kind == "" {
		txn.Kind = model.KindStandard
	}
	if txn.Status == "" {
		txn.Status = model.StatusUncleared
	}
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}
	if err := db.Storage.SaveTransaction(context.Background(), &txn); err != nil {
		db.t.Fatalf("failed to seed transaction: %v", err)
	}
	return txn
}

// NewTransaction builds an unstored transaction with sensible defaults.
func NewTransaction(accountID, payee string, amount float64, date time.Time) model.Transaction {
	txn := model.Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Payee:     payee,
		Amount:    amount,
		Date:      date,
		Kind:      model.KindStandard,
		Status:    model.StatusUncleared,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}
