// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iammattholland/escapebudget/internal/model"
)

// ErrInvalidMatchConfig indicates out-of-range matching knobs. This is a
// programmer error, not a user-facing condition.
var ErrInvalidMatchConfig = errors.New("invalid match configuration")

// TransactionFilter defines filtering options for transaction queries.
// A zero filter matches everything; Limit <= 0 means no limit.
type TransactionFilter struct {
	StartDate     *time.Time
	EndDate       *time.Time
	AccountID     *string
	Kind          *model.TransactionKind
	UnlinkedOnly  bool
	UnmatchedOnly bool
	Limit         int
}

// MatchConfig carries the numeric knobs for transfer candidate search and
// suggestion scoring.
type MatchConfig struct {
	// LookbackDays bounds how far back inbox queries reach.
	LookbackDays int
	// CandidateWindowDays bounds candidate search around a base transaction.
	// Zero means search the whole pool.
	CandidateWindowDays int
	// MaxDaysApart is the date distance past which a pair scores zero.
	MaxDaysApart int
	// MaxAmountDifferenceCents caps the absolute cent difference tolerated
	// between two legs after negation.
	MaxAmountDifferenceCents int64
	// MinScore discards suggestions scoring below it.
	MinScore float64
	// Limit caps the number of suggestions returned per pass.
	Limit int
	// FetchLimit is the hard cap on rows fetched for a candidate pool,
	// applied before filtering.
	FetchLimit int
}

// DefaultMatchConfig returns the documented default knobs.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		LookbackDays:             365,
		CandidateWindowDays:      90,
		MaxDaysApart:             14,
		MaxAmountDifferenceCents: 100,
		MinScore:                 0.55,
		Limit:                    50,
		FetchLimit:               500,
	}
}

// Validate reports programmer-error-class configuration mistakes.
func (c MatchConfig) Validate() error {
	if c.MaxDaysApart < 0 || c.MaxAmountDifferenceCents < 0 {
		return ErrInvalidMatchConfig
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return ErrInvalidMatchConfig
	}
	return nil
}

// Storage defines the contract for the persistence layer. The core engine
// components never hold live object references across operations; they
// resolve entities by ID through this interface per call.
type Storage interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	SaveTransactions(ctx context.Context, txns []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionsByTransferID(ctx context.Context, transferID string) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	GetTransactionCount(ctx context.Context) (int, error)

	// Account operations
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)
	SaveAccount(ctx context.Context, account *model.Account) error

	// Auto-rule operations
	GetRules(ctx context.Context) ([]model.AutoRule, error)
	GetRuleByID(ctx context.Context, id string) (*model.AutoRule, error)
	SaveRule(ctx context.Context, rule *model.AutoRule) error
	DeleteRule(ctx context.Context, id string) error

	// Transfer weight operations. Weights are read-modify-written as whole
	// rows; GetTransferWeight returns a zero-weight row when none exists.
	GetTransferWeight(ctx context.Context, debitAccountID, creditAccountID, payeeBucket string) (*model.TransferWeight, error)
	SaveTransferWeight(ctx context.Context, weight *model.TransferWeight) error

	// History/audit sink: best-effort, not part of any transactional
	// guarantee.
	AppendHistory(ctx context.Context, transactionID, detail string) error
	GetHistory(ctx context.Context, transactionID string) ([]string, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}
