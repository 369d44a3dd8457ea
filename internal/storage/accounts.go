package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iammattholland/escapebudget/internal/common"
	"github.com/iammattholland/escapebudget/internal/model"
)

// GetAccountByID retrieves an account by ID.
func (s *SQLiteStorage) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getAccountByID(ctx, s.db, id)
}

// GetAccounts retrieves all accounts ordered by name.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getAccounts(ctx, s.db)
}

// SaveAccount inserts or updates an account.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateString(account.ID, "account ID"); err != nil {
		return err
	}
	if err := validateString(account.Name, "account name"); err != nil {
		return err
	}
	return saveAccount(ctx, s.db, account)
}

func getAccountByID(ctx context.Context, q querier, id string) (*model.Account, error) {
	var account model.Account
	var createdAt sql.NullTime

	err := q.QueryRowContext(ctx,
		"SELECT id, name, is_active, created_at FROM accounts WHERE id = ?", id,
	).Scan(&account.ID, &account.Name, &account.IsActive, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: account %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.CreatedAt = nullTime(createdAt)
	return &account, nil
}

func getAccounts(ctx context.Context, q querier) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, is_active, created_at FROM accounts ORDER BY name COLLATE NOCASE ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		var createdAt sql.NullTime
		if err := rows.Scan(&account.ID, &account.Name, &account.IsActive, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.CreatedAt = nullTime(createdAt)
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

func saveAccount(ctx context.Context, q querier, account *model.Account) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (id, name, is_active) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, is_active = excluded.is_active
	`, account.ID, account.Name, account.IsActive)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.ID, err)
	}
	return nil
}
