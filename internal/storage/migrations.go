package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT NOT NULL,
					date DATETIME NOT NULL,
					payee TEXT NOT NULL,
					amount REAL NOT NULL,
					account_id TEXT NOT NULL,
					category_id TEXT,
					kind TEXT NOT NULL DEFAULT 'standard',
					transfer_id TEXT,
					status TEXT NOT NULL DEFAULT 'uncleared',
					memo TEXT NOT NULL DEFAULT '',
					tags TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,
				`CREATE INDEX idx_transactions_transfer ON transactions(transfer_id)`,

				`CREATE TABLE IF NOT EXISTS history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					detail TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_history_transaction ON history(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Auto-rules",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS auto_rules (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				is_enabled INTEGER NOT NULL DEFAULT 1,
				rule_order INTEGER NOT NULL DEFAULT 0,
				match_payee_enabled INTEGER NOT NULL DEFAULT 0,
				match_payee_condition TEXT NOT NULL DEFAULT 'contains',
				match_payee_value TEXT NOT NULL DEFAULT '',
				match_payee_case_sensitive INTEGER NOT NULL DEFAULT 0,
				match_account_id TEXT,
				match_amount_condition TEXT NOT NULL DEFAULT 'none',
				amount_value REAL,
				amount_max REAL,
				action_rename_enabled INTEGER NOT NULL DEFAULT 0,
				action_rename_payee TEXT NOT NULL DEFAULT '',
				action_category_enabled INTEGER NOT NULL DEFAULT 0,
				action_category_id TEXT,
				action_tag_ids TEXT,
				action_memo_enabled INTEGER NOT NULL DEFAULT 0,
				action_memo TEXT NOT NULL DEFAULT '',
				action_memo_append INTEGER NOT NULL DEFAULT 0,
				action_status_enabled INTEGER NOT NULL DEFAULT 0,
				action_status TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`)
			if err != nil {
				return fmt.Errorf("failed to create auto_rules table: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Learned transfer weights",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS transfer_weights (
				debit_account_id TEXT NOT NULL,
				credit_account_id TEXT NOT NULL,
				payee_bucket TEXT NOT NULL,
				weight REAL NOT NULL DEFAULT 0,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (debit_account_id, credit_account_id, payee_bucket)
			)`)
			if err != nil {
				return fmt.Errorf("failed to create transfer_weights table: %w", err)
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Transfer inbox dismissal flag",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE transactions ADD COLUMN transfer_inbox_dismissed INTEGER NOT NULL DEFAULT 0`)
			if err != nil {
				return fmt.Errorf("failed to add transfer_inbox_dismissed column: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
