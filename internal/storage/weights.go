package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iammattholland/escapebudget/internal/model"
)

// GetTransferWeight retrieves the learned weight for an account pair and
// payee bucket. A key that was never trained returns a zero-weight row so
// callers can read-modify-write without special cases.
func (s *SQLiteStorage) GetTransferWeight(ctx context.Context, debitAccountID, creditAccountID, payeeBucket string) (*model.TransferWeight, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(debitAccountID, "debitAccountID"); err != nil {
		return nil, err
	}
	if err := validateString(creditAccountID, "creditAccountID"); err != nil {
		return nil, err
	}
	return getTransferWeight(ctx, s.db, debitAccountID, creditAccountID, payeeBucket)
}

// SaveTransferWeight upserts a weight row.
func (s *SQLiteStorage) SaveTransferWeight(ctx context.Context, weight *model.TransferWeight) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWeight(weight); err != nil {
		return err
	}
	return saveTransferWeight(ctx, s.db, weight)
}

func getTransferWeight(ctx context.Context, q querier, debitAccountID, creditAccountID, payeeBucket string) (*model.TransferWeight, error) {
	weight := &model.TransferWeight{
		DebitAccountID:  debitAccountID,
		CreditAccountID: creditAccountID,
		PayeeBucket:     payeeBucket,
	}

	var updatedAt sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT weight, updated_at FROM transfer_weights
		WHERE debit_account_id = ? AND credit_account_id = ? AND payee_bucket = ?
	`, debitAccountID, creditAccountID, payeeBucket).Scan(&weight.Weight, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return weight, nil
		}
		return nil, fmt.Errorf("failed to get transfer weight: %w", err)
	}

	weight.UpdatedAt = nullTime(updatedAt)
	return weight, nil
}

func saveTransferWeight(ctx context.Context, q querier, weight *model.TransferWeight) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transfer_weights (debit_account_id, credit_account_id, payee_bucket, weight, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(debit_account_id, credit_account_id, payee_bucket) DO UPDATE SET
			weight = excluded.weight,
			updated_at = CURRENT_TIMESTAMP
	`, weight.DebitAccountID, weight.CreditAccountID, weight.PayeeBucket, weight.Weight)
	if err != nil {
		return fmt.Errorf("failed to save transfer weight: %w", err)
	}
	return nil
}
