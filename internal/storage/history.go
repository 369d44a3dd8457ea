package storage

import (
	"context"
	"fmt"
)

// AppendHistory records a human-readable audit line for a transaction.
// History is best-effort and sits outside any transactional guarantee.
func (s *SQLiteStorage) AppendHistory(ctx context.Context, transactionID, detail string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if err := validateString(detail, "detail"); err != nil {
		return err
	}
	return appendHistory(ctx, s.db, transactionID, detail)
}

// GetHistory returns the audit lines for a transaction, oldest first.
func (s *SQLiteStorage) GetHistory(ctx context.Context, transactionID string) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}
	return getHistory(ctx, s.db, transactionID)
}

func appendHistory(ctx context.Context, q querier, transactionID, detail string) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO history (transaction_id, detail) VALUES (?, ?)",
		transactionID, detail)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func getHistory(ctx context.Context, q querier, transactionID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT detail FROM history WHERE transaction_id = ? ORDER BY id ASC",
		transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var details []string
	for rows.Next() {
		var detail string
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return details, nil
}
