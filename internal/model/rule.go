package model

import (
	"errors"
	"time"
)

// PayeeCondition represents the type of payee text comparison.
type PayeeCondition string

// Payee condition constants.
const (
	PayeeContains   PayeeCondition = "contains"
	PayeeBeginsWith PayeeCondition = "begins_with"
	PayeeEndsWith   PayeeCondition = "ends_with"
	PayeeEquals     PayeeCondition = "equals"
)

// AmountCondition represents the type of amount comparison. Comparisons use
// the signed amount exactly as entered, not the absolute value.
type AmountCondition string

// Amount condition constants.
const (
	AmountNone        AmountCondition = "none"
	AmountEqual       AmountCondition = "eq"
	AmountGreaterThan AmountCondition = "gt"
	AmountLessThan    AmountCondition = "lt"
	AmountBetween     AmountCondition = "between"
)

// Rule validation errors.
var (
	ErrRuleNoConditions = errors.New("rule must have at least one enabled match condition")
	ErrRuleNoActions    = errors.New("rule must have at least one enabled action")
)

// AutoRule is a user-defined condition/action pair applied automatically to
// matching transactions. Rules apply in ascending Order; all enabled
// conditions must match (AND) for the actions to run.
type AutoRule struct {
	CreatedAt             time.Time
	UpdatedAt             time.Time
	AmountValue           *float64
	AmountMax             *float64
	MatchAccountID        *string
	ActionCategoryID      *string
	ActionStatus          *TransactionStatus
	ID                    string
	Name                  string
	MatchPayeeValue       string
	ActionRenamePayee     string
	ActionMemo            string
	MatchPayeeCondition   PayeeCondition
	MatchAmountCondition  AmountCondition
	ActionTagIDs          []string
	Order                 int
	MatchPayeeEnabled     bool
	MatchPayeeCaseSens    bool
	ActionMemoAppend      bool
	ActionRenameEnabled   bool
	ActionCategoryEnabled bool
	ActionMemoEnabled     bool
	ActionStatusEnabled   bool
	IsEnabled             bool
}

// HasCondition reports whether at least one match condition is enabled.
func (r *AutoRule) HasCondition() bool {
	return r.MatchPayeeEnabled || r.MatchAccountID != nil ||
		(r.MatchAmountCondition != "" && r.MatchAmountCondition != AmountNone)
}

// HasAction reports whether at least one action is enabled.
func (r *AutoRule) HasAction() bool {
	return r.ActionRenameEnabled || r.ActionCategoryEnabled || len(r.ActionTagIDs) > 0 ||
		r.ActionMemoEnabled || r.ActionStatusEnabled
}

// Validate checks that a rule is well-formed for creation. A saved rule's
// IsEnabled flag is independent of this check.
func (r *AutoRule) Validate() error {
	if !r.HasCondition() {
		return ErrRuleNoConditions
	}
	if !r.HasAction() {
		return ErrRuleNoActions
	}
	return nil
}
