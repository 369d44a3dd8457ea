package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iammattholland/escapebudget/internal/common"
	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
)

const transactionColumns = `id, hash, date, payee, amount, account_id, category_id,
	kind, transfer_id, transfer_inbox_dismissed, status, memo, tags`

// SaveTransaction inserts or updates a single transaction.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return saveTransaction(ctx, s.db, txn)
}

// SaveTransactions saves multiple transactions atomically.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, txns []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range txns {
		if err := validateTransaction(&txns[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveTransactions(ctx, tx, txns); err != nil {
		return err
	}

	return tx.Commit()
}

// GetTransactionByID retrieves a transaction by its ID.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getTransactionByID(ctx, s.db, id)
}

// GetTransactions retrieves transactions matching the filter, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransactions(ctx, s.db, filter)
}

// GetTransactionsByTransferID retrieves the legs sharing a transfer ID.
func (s *SQLiteStorage) GetTransactionsByTransferID(ctx context.Context, transferID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transferID, "transferID"); err != nil {
		return nil, err
	}
	return getTransactionsByTransferID(ctx, s.db, transferID)
}

// DeleteTransaction removes a transaction by ID.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return deleteTransaction(ctx, s.db, id)
}

// GetTransactionCount returns the total number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return getTransactionCount(ctx, s.db)
}

func saveTransaction(ctx context.Context, q querier, txn *model.Transaction) error {
	tags, err := encodeTags(txn.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			id, hash, date, payee, amount, account_id, category_id,
			kind, transfer_id, transfer_inbox_dismissed, status, memo, tags
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hash = excluded.hash,
			date = excluded.date,
			payee = excluded.payee,
			amount = excluded.amount,
			account_id = excluded.account_id,
			category_id = excluded.category_id,
			kind = excluded.kind,
			transfer_id = excluded.transfer_id,
			transfer_inbox_dismissed = excluded.transfer_inbox_dismissed,
			status = excluded.status,
			memo = excluded.memo,
			tags = excluded.tags
	`

	if _, err := q.ExecContext(ctx, query,
		txn.ID, txn.Hash, txn.Date, txn.Payee, txn.Amount, txn.AccountID,
		txn.CategoryID, string(txn.Kind), nullString(txn.TransferID),
		txn.TransferInboxDismissed, string(txn.Status), txn.Memo, tags,
	); err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
	}
	return nil
}

func saveTransactions(ctx context.Context, q querier, txns []model.Transaction) error {
	for i := range txns {
		if err := saveTransaction(ctx, q, &txns[i]); err != nil {
			return err
		}
	}
	return nil
}

func getTransactionByID(ctx context.Context, q querier, id string) (*model.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE id = ?", transactionColumns)

	txn, err := scanTransaction(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func getTransactions(ctx context.Context, q querier, filter service.TransactionFilter) ([]model.Transaction, error) {
	var conditions []string
	var args []any

	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.AccountID != nil {
		conditions = append(conditions, "account_id = ?")
		args = append(args, *filter.AccountID)
	}
	if filter.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(*filter.Kind))
	}
	if filter.UnlinkedOnly {
		conditions = append(conditions, "transfer_id IS NULL")
	}
	if filter.UnmatchedOnly {
		conditions = append(conditions, "kind = 'transfer'", "transfer_id IS NULL")
	}

	query := fmt.Sprintf("SELECT %s FROM transactions", transactionColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func getTransactionsByTransferID(ctx context.Context, q querier, transferID string) ([]model.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE transfer_id = ? ORDER BY id ASC", transactionColumns)

	rows, err := q.QueryContext(ctx, query, transferID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer legs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func deleteTransaction(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return nil
}

func getTransactionCount(ctx context.Context, q querier) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var categoryID, transferID, tags sql.NullString

	if err := row.Scan(
		&txn.ID, &txn.Hash, &txn.Date, &txn.Payee, &txn.Amount, &txn.AccountID,
		&categoryID, &txn.Kind, &transferID, &txn.TransferInboxDismissed,
		&txn.Status, &txn.Memo, &tags,
	); err != nil {
		return nil, err
	}

	if categoryID.Valid {
		cat := categoryID.String
		txn.CategoryID = &cat
	}
	txn.TransferID = transferID.String

	decoded, err := decodeTags(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tags for %s: %w", txn.ID, err)
	}
	txn.Tags = decoded

	return &txn, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

func encodeTags(tags []string) (*string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	s := string(data)
	return &s, nil
}

func decodeTags(tags sql.NullString) ([]string, error) {
	if !tags.Valid || tags.String == "" {
		return nil, nil
	}
	var decoded []string
	if err := json.Unmarshal([]byte(tags.String), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
