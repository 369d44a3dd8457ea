package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// querier abstracts *sql.DB and *sql.Tx so query helpers run inside or
// outside an explicit transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{tx: tx}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction. Its
// methods share the query helpers with SQLiteStorage, running them against
// the open transaction.
type sqliteTransaction struct {
	tx *sql.Tx
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return saveTransaction(ctx, t.tx, txn)
}

func (t *sqliteTransaction) SaveTransactions(ctx context.Context, txns []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range txns {
		if err := validateTransaction(&txns[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return saveTransactions(ctx, t.tx, txns)
}

func (t *sqliteTransaction) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getTransactionByID(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	return getTransactions(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetTransactionsByTransferID(ctx context.Context, transferID string) ([]model.Transaction, error) {
	if err := validateString(transferID, "transferID"); err != nil {
		return nil, err
	}
	return getTransactionsByTransferID(ctx, t.tx, transferID)
}

func (t *sqliteTransaction) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return deleteTransaction(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetTransactionCount(ctx context.Context) (int, error) {
	return getTransactionCount(ctx, t.tx)
}

func (t *sqliteTransaction) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return getAccountByID(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetAccounts(ctx context.Context) ([]model.Account, error) {
	return getAccounts(ctx, t.tx)
}

func (t *sqliteTransaction) SaveAccount(ctx context.Context, account *model.Account) error {
	return saveAccount(ctx, t.tx, account)
}

func (t *sqliteTransaction) GetRules(ctx context.Context) ([]model.AutoRule, error) {
	return getRules(ctx, t.tx)
}

func (t *sqliteTransaction) GetRuleByID(ctx context.Context, id string) (*model.AutoRule, error) {
	return getRuleByID(ctx, t.tx, id)
}

func (t *sqliteTransaction) SaveRule(ctx context.Context, rule *model.AutoRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	return saveRule(ctx, t.tx, rule)
}

func (t *sqliteTransaction) DeleteRule(ctx context.Context, id string) error {
	return deleteRule(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetTransferWeight(ctx context.Context, debitAccountID, creditAccountID, payeeBucket string) (*model.TransferWeight, error) {
	return getTransferWeight(ctx, t.tx, debitAccountID, creditAccountID, payeeBucket)
}

func (t *sqliteTransaction) SaveTransferWeight(ctx context.Context, weight *model.TransferWeight) error {
	if err := validateWeight(weight); err != nil {
		return err
	}
	return saveTransferWeight(ctx, t.tx, weight)
}

func (t *sqliteTransaction) AppendHistory(ctx context.Context, transactionID, detail string) error {
	return appendHistory(ctx, t.tx, transactionID, detail)
}

func (t *sqliteTransaction) GetHistory(ctx context.Context, transactionID string) ([]string, error) {
	return getHistory(ctx, t.tx, transactionID)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

// nullTime converts a nullable time column.
func nullTime(t sql.NullTime) time.Time {
	if t.Valid {
		return t.Time
	}
	return time.Time{}
}
