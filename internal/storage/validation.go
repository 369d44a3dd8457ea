// Package storage provides the SQLite persistence layer for the application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iammattholland/escapebudget/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidWeight = errors.New("invalid transfer weight")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateString(txn.ID, "transaction ID"); err != nil {
		return err
	}
	if err := validateString(txn.AccountID, "account ID"); err != nil {
		return err
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("transaction %s has a zero date", txn.ID)
	}
	switch txn.Kind {
	case model.KindStandard, model.KindTransfer:
	default:
		return fmt.Errorf("transaction %s has unknown kind %q", txn.ID, txn.Kind)
	}
	return nil
}

// validateRule validates an auto-rule before persisting it.
func validateRule(rule *model.AutoRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := validateString(rule.ID, "rule ID"); err != nil {
		return err
	}
	if err := validateString(rule.Name, "rule name"); err != nil {
		return err
	}
	return nil
}

// validateWeight validates a transfer weight row.
func validateWeight(weight *model.TransferWeight) error {
	if weight == nil {
		return fmt.Errorf("%w: weight", ErrNilParameter)
	}
	if err := validateString(weight.DebitAccountID, "debit account ID"); err != nil {
		return err
	}
	if err := validateString(weight.CreditAccountID, "credit account ID"); err != nil {
		return err
	}
	if weight.Weight < 0 {
		return fmt.Errorf("%w: negative weight %f", ErrInvalidWeight, weight.Weight)
	}
	return nil
}
