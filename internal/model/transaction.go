// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"math"
	"time"
)

// TransactionKind distinguishes ordinary transactions from transfer legs.
type TransactionKind string

// Transaction kind constants.
const (
	// KindStandard is a normal income or expense transaction.
	KindStandard TransactionKind = "standard"
	// KindTransfer marks a transaction as one leg of a transfer between
	// the user's own accounts. A transfer leg with an empty TransferID is
	// unmatched and waiting to be paired.
	KindTransfer TransactionKind = "transfer"
)

// TransactionStatus indicates whether a transaction has cleared.
type TransactionStatus string

// Transaction status constants.
const (
	StatusUncleared TransactionStatus = "uncleared"
	StatusCleared   TransactionStatus = "cleared"
)

// Transaction represents a single financial transaction.
// Amounts are signed: negative is an outflow, positive an inflow.
type Transaction struct {
	Date                   time.Time
	CategoryID             *string
	ID                     string
	Payee                  string
	AccountID              string
	TransferID             string
	Memo                   string
	Hash                   string
	Kind                   TransactionKind
	Status                 TransactionStatus
	Tags                   []string
	Amount                 float64
	TransferInboxDismissed bool
}

// AmountCents returns the signed amount in whole cents.
func (t *Transaction) AmountCents() int64 {
	return int64(math.Round(t.Amount * 100))
}

// IsLinkedTransfer reports whether this transaction is one leg of a
// paired transfer.
func (t *Transaction) IsLinkedTransfer() bool {
	return t.Kind == KindTransfer && t.TransferID != ""
}

// IsUnmatchedTransfer reports whether this transaction has been marked as
// a transfer but not yet paired with its opposite leg.
func (t *Transaction) IsUnmatchedTransfer() bool {
	return t.Kind == KindTransfer && t.TransferID == ""
}

// HasTag reports whether the transaction carries the given tag ID.
func (t *Transaction) HasTag(tagID string) bool {
	for _, id := range t.Tags {
		if id == tagID {
			return true
		}
	}
	return false
}

// GenerateHash creates a stable hash for duplicate detection on import.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Payee,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
