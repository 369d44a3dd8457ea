// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// Transfer linking precondition violations. These are raised before any
	// mutation and are always recoverable by choosing a different action.
	ErrAlreadyLinked  = errors.New("transaction is already linked to a transfer")
	ErrAmountMismatch = errors.New("amounts are not exact opposites")
	ErrSameAccount    = errors.New("both legs belong to the same account")
	ErrNotATransfer   = errors.New("transaction is not a transfer")

	// Undo/redo errors.
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsPrecondition reports whether an error is a transfer-linking precondition
// violation rather than an infrastructure failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrAlreadyLinked) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrNotATransfer)
}
