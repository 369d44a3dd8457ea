// Package rules implements the auto-rule engine: evaluation of user-defined
// match conditions against transactions and idempotent application of their
// actions.
package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
)

// Engine evaluates auto-rules against transactions. Rules apply in ascending
// Order with AND semantics across their enabled conditions. Re-running the
// engine over an already-processed transaction is safe: actions whose target
// field already holds the desired value change nothing and emit no events.
type Engine struct {
	store service.Storage
}

// NewEngine creates a rule engine backed by the given store.
func NewEngine(store service.Storage) *Engine {
	return &Engine{store: store}
}

// Apply runs every enabled rule against the transaction in ascending order,
// mutating it in place, and returns one event per field that actually
// changed. Later rules win for payee, category, memo, and status; tag
// actions accumulate across all matching rules. The caller persists the
// transaction.
func (e *Engine) Apply(_ context.Context, ruleset []model.AutoRule, txn *model.Transaction) ([]model.Event, error) {
	if txn == nil {
		return nil, fmt.Errorf("transaction cannot be nil")
	}

	ordered := make([]model.AutoRule, len(ruleset))
	copy(ordered, ruleset)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	var events []model.Event
	for i := range ordered {
		rule := &ordered[i]
		if !rule.IsEnabled {
			continue
		}
		if !Matches(rule, txn) {
			continue
		}
		events = append(events, applyActions(rule, txn)...)
	}

	return events, nil
}

// PreviewMatches returns up to limit stored transactions the rule would
// match, without applying any actions.
func (e *Engine) PreviewMatches(ctx context.Context, rule *model.AutoRule, limit int) ([]model.Transaction, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule cannot be nil")
	}

	pool, err := e.store.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	var matches []model.Transaction
	for _, txn := range pool {
		if !Matches(rule, &txn) {
			continue
		}
		matches = append(matches, txn)
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

// Matches reports whether all of the rule's enabled conditions hold for the
// transaction.
func Matches(rule *model.AutoRule, txn *model.Transaction) bool {
	if rule.MatchPayeeEnabled && !matchesPayee(rule, txn.Payee) {
		return false
	}
	if rule.MatchAccountID != nil && txn.AccountID != *rule.MatchAccountID {
		return false
	}
	return matchesAmount(rule, txn.Amount)
}

func matchesPayee(rule *model.AutoRule, payee string) bool {
	value := rule.MatchPayeeValue
	if !rule.MatchPayeeCaseSens {
		payee = strings.ToLower(payee)
		value = strings.ToLower(value)
	}

	switch rule.MatchPayeeCondition {
	case model.PayeeContains:
		return strings.Contains(payee, value)
	case model.PayeeBeginsWith:
		return strings.HasPrefix(payee, value)
	case model.PayeeEndsWith:
		return strings.HasSuffix(payee, value)
	case model.PayeeEquals:
		return payee == value
	}
	return false
}

// matchesAmount compares the signed amount exactly as the user entered the
// bounds: a "between 10 and 50" rule matches inflows only unless the bounds
// were entered negative.
func matchesAmount(rule *model.AutoRule, amount float64) bool {
	switch rule.MatchAmountCondition {
	case "", model.AmountNone:
		return true
	case model.AmountEqual:
		return rule.AmountValue != nil && amount == *rule.AmountValue
	case model.AmountGreaterThan:
		return rule.AmountValue != nil && amount > *rule.AmountValue
	case model.AmountLessThan:
		return rule.AmountValue != nil && amount < *rule.AmountValue
	case model.AmountBetween:
		if rule.AmountValue == nil || rule.AmountMax == nil {
			return false
		}
		return amount >= *rule.AmountValue && amount <= *rule.AmountMax
	}
	return false
}

// applyActions applies every enabled action in a fixed order: rename payee,
// set category, add tags, set or append memo, set status. Only actions that
// change the field emit an event.
func applyActions(rule *model.AutoRule, txn *model.Transaction) []model.Event {
	var events []model.Event

	if rule.ActionRenameEnabled && txn.Payee != rule.ActionRenamePayee {
		prior := txn.Payee
		txn.Payee = rule.ActionRenamePayee
		events = append(events, model.Event{
			Kind:   model.EventPayeeRenamed,
			Title:  rule.Name,
			Detail: fmt.Sprintf("Payee renamed from %q to %q", prior, txn.Payee),
		})
	}

	if rule.ActionCategoryEnabled && !categoriesEqual(txn.CategoryID, rule.ActionCategoryID) {
		txn.CategoryID = copyCategory(rule.ActionCategoryID)
		detail := "Category cleared"
		if txn.CategoryID != nil {
			detail = fmt.Sprintf("Category set to %s", *txn.CategoryID)
		}
		events = append(events, model.Event{
			Kind:   model.EventCategoryChanged,
			Title:  rule.Name,
			Detail: detail,
		})
	}

	if added := addTags(txn, rule.ActionTagIDs); len(added) > 0 {
		events = append(events, model.Event{
			Kind:   model.EventTagsAdded,
			Title:  rule.Name,
			Detail: fmt.Sprintf("Tags added: %s", strings.Join(added, ", ")),
		})
	}

	if rule.ActionMemoEnabled {
		if event := applyMemo(rule, txn); event != nil {
			events = append(events, *event)
		}
	}

	if rule.ActionStatusEnabled && rule.ActionStatus != nil && txn.Status != *rule.ActionStatus {
		prior := txn.Status
		txn.Status = *rule.ActionStatus
		events = append(events, model.Event{
			Kind:   model.EventStatusChanged,
			Title:  rule.Name,
			Detail: fmt.Sprintf("Status changed from %s to %s", prior, txn.Status),
		})
	}

	return events
}

// applyMemo sets or appends the memo. Appending is idempotent: a memo that
// already contains the rule's text is left alone.
func applyMemo(rule *model.AutoRule, txn *model.Transaction) *model.Event {
	if rule.ActionMemoAppend {
		if rule.ActionMemo == "" || strings.Contains(txn.Memo, rule.ActionMemo) {
			return nil
		}
		if txn.Memo == "" {
			txn.Memo = rule.ActionMemo
		} else {
			txn.Memo = txn.Memo + " " + rule.ActionMemo
		}
		return &model.Event{
			Kind:   model.EventMemoChanged,
			Title:  rule.Name,
			Detail: fmt.Sprintf("Memo appended: %q", rule.ActionMemo),
		}
	}

	if txn.Memo == rule.ActionMemo {
		return nil
	}
	txn.Memo = rule.ActionMemo
	return &model.Event{
		Kind:   model.EventMemoChanged,
		Title:  rule.Name,
		Detail: fmt.Sprintf("Memo set to %q", rule.ActionMemo),
	}
}

func addTags(txn *model.Transaction, tagIDs []string) []string {
	var added []string
	for _, id := range tagIDs {
		if txn.HasTag(id) {
			continue
		}
		txn.Tags = append(txn.Tags, id)
		added = append(added, id)
	}
	return added
}

func categoriesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyCategory(c *string) *string {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
