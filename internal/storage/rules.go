package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iammattholland/escapebudget/internal/common"
	"github.com/iammattholland/escapebudget/internal/model"
)

const ruleColumns = `id, name, is_enabled, rule_order,
	match_payee_enabled, match_payee_condition, match_payee_value, match_payee_case_sensitive,
	match_account_id, match_amount_condition, amount_value, amount_max,
	action_rename_enabled, action_rename_payee, action_category_enabled, action_category_id,
	action_tag_ids, action_memo_enabled, action_memo, action_memo_append,
	action_status_enabled, action_status, created_at, updated_at`

// GetRules retrieves all auto-rules ordered by application order.
func (s *SQLiteStorage) GetRules(ctx context.Context) ([]model.AutoRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getRules(ctx, s.db)
}

// GetRuleByID retrieves a rule by ID.
func (s *SQLiteStorage) GetRuleByID(ctx context.Context, id string) (*model.AutoRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getRuleByID(ctx, s.db, id)
}

// SaveRule inserts or updates a rule.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.AutoRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return saveRule(ctx, s.db, rule)
}

// DeleteRule removes a rule by ID.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return deleteRule(ctx, s.db, id)
}

func getRules(ctx context.Context, q querier) ([]model.AutoRule, error) {
	query := fmt.Sprintf("SELECT %s FROM auto_rules ORDER BY rule_order ASC, id ASC", ruleColumns)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.AutoRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

func getRuleByID(ctx context.Context, q querier, id string) (*model.AutoRule, error) {
	query := fmt.Sprintf("SELECT %s FROM auto_rules WHERE id = ?", ruleColumns)

	rule, err := scanRule(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func saveRule(ctx context.Context, q querier, rule *model.AutoRule) error {
	tagIDs, err := encodeTags(rule.ActionTagIDs)
	if err != nil {
		return err
	}

	var status *string
	if rule.ActionStatus != nil {
		s := string(*rule.ActionStatus)
		status = &s
	}

	query := `
		INSERT INTO auto_rules (
			id, name, is_enabled, rule_order,
			match_payee_enabled, match_payee_condition, match_payee_value, match_payee_case_sensitive,
			match_account_id, match_amount_condition, amount_value, amount_max,
			action_rename_enabled, action_rename_payee, action_category_enabled, action_category_id,
			action_tag_ids, action_memo_enabled, action_memo, action_memo_append,
			action_status_enabled, action_status, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_enabled = excluded.is_enabled,
			rule_order = excluded.rule_order,
			match_payee_enabled = excluded.match_payee_enabled,
			match_payee_condition = excluded.match_payee_condition,
			match_payee_value = excluded.match_payee_value,
			match_payee_case_sensitive = excluded.match_payee_case_sensitive,
			match_account_id = excluded.match_account_id,
			match_amount_condition = excluded.match_amount_condition,
			amount_value = excluded.amount_value,
			amount_max = excluded.amount_max,
			action_rename_enabled = excluded.action_rename_enabled,
			action_rename_payee = excluded.action_rename_payee,
			action_category_enabled = excluded.action_category_enabled,
			action_category_id = excluded.action_category_id,
			action_tag_ids = excluded.action_tag_ids,
			action_memo_enabled = excluded.action_memo_enabled,
			action_memo = excluded.action_memo,
			action_memo_append = excluded.action_memo_append,
			action_status_enabled = excluded.action_status_enabled,
			action_status = excluded.action_status,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := q.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.IsEnabled, rule.Order,
		rule.MatchPayeeEnabled, string(rule.MatchPayeeCondition), rule.MatchPayeeValue, rule.MatchPayeeCaseSens,
		rule.MatchAccountID, string(rule.MatchAmountCondition), rule.AmountValue, rule.AmountMax,
		rule.ActionRenameEnabled, rule.ActionRenamePayee, rule.ActionCategoryEnabled, rule.ActionCategoryID,
		tagIDs, rule.ActionMemoEnabled, rule.ActionMemo, rule.ActionMemoAppend,
		rule.ActionStatusEnabled, status,
	); err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}
	return nil
}

func deleteRule(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM auto_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	return nil
}

func scanRule(row rowScanner) (*model.AutoRule, error) {
	var rule model.AutoRule
	var payeeCondition, amountCondition string
	var accountID, categoryID, tagIDs, status sql.NullString
	var amountValue, amountMax sql.NullFloat64
	var createdAt, updatedAt sql.NullTime

	if err := row.Scan(
		&rule.ID, &rule.Name, &rule.IsEnabled, &rule.Order,
		&rule.MatchPayeeEnabled, &payeeCondition, &rule.MatchPayeeValue, &rule.MatchPayeeCaseSens,
		&accountID, &amountCondition, &amountValue, &amountMax,
		&rule.ActionRenameEnabled, &rule.ActionRenamePayee, &rule.ActionCategoryEnabled, &categoryID,
		&tagIDs, &rule.ActionMemoEnabled, &rule.ActionMemo, &rule.ActionMemoAppend,
		&rule.ActionStatusEnabled, &status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	rule.MatchPayeeCondition = model.PayeeCondition(payeeCondition)
	rule.MatchAmountCondition = model.AmountCondition(amountCondition)
	rule.CreatedAt = nullTime(createdAt)
	rule.UpdatedAt = nullTime(updatedAt)

	if accountID.Valid {
		v := accountID.String
		rule.MatchAccountID = &v
	}
	if categoryID.Valid {
		v := categoryID.String
		rule.ActionCategoryID = &v
	}
	if amountValue.Valid {
		v := amountValue.Float64
		rule.AmountValue = &v
	}
	if amountMax.Valid {
		v := amountMax.Float64
		rule.AmountMax = &v
	}
	if status.Valid {
		v := model.TransactionStatus(status.String)
		rule.ActionStatus = &v
	}
	if tagIDs.Valid && tagIDs.String != "" {
		if err := json.Unmarshal([]byte(tagIDs.String), &rule.ActionTagIDs); err != nil {
			return nil, fmt.Errorf("failed to decode tag IDs: %w", err)
		}
	}

	return &rule, nil
}
