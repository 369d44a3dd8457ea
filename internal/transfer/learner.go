package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
)

// Weight adjustment constants. Weights are clamped to [0, maxWeight] so one
// heavily-confirmed account pair can never dominate scoring outright.
const (
	confirmIncrement = 0.10
	// manualConfirmIncrement applies when the user linked without an auto
	// suggestion: a pattern the scorer did not already know is a stronger
	// signal.
	manualConfirmIncrement = 0.20
	rejectDecrement        = 0.15
	maxWeight              = 1.0
)

// Learner maintains learned affinity weights between account pairs and payee
// buckets. Each update is a whole-row read-modify-write against the store.
// Repeated confirmations for the same pair intentionally accumulate; calls
// are deterministic given call count, not idempotent.
type Learner struct {
	store service.Storage
}

// NewLearner creates a learner backed by the given store.
func NewLearner(store service.Storage) *Learner {
	return &Learner{store: store}
}

// LearnFromConfirmation raises the weight for the (debit account, credit
// account, payee bucket) key after the user confirms a link. wasAutoDetected
// is false when the user linked manually without a suggestion, which earns
// the larger increment.
func (l *Learner) LearnFromConfirmation(ctx context.Context, debit, credit model.Transaction, wasAutoDetected bool) error {
	increment := confirmIncrement
	if !wasAutoDetected {
		increment = manualConfirmIncrement
	}
	return l.adjust(ctx, debit, credit, increment)
}

// LearnFromRejection lowers the weight for the pair's key after the user
// rejects a suggested link. Weights never go below zero.
func (l *Learner) LearnFromRejection(ctx context.Context, debit, credit model.Transaction, wasAutoSuggested bool) error {
	if !wasAutoSuggested {
		// Nothing was suggested, so there is no learned pattern to demote.
		return nil
	}
	return l.adjust(ctx, debit, credit, -rejectDecrement)
}

// Affinity returns the current weight for an account pair and payee bucket,
// in [0, 1]. A key that was never trained reads as zero.
func (l *Learner) Affinity(ctx context.Context, debitAccountID, creditAccountID, payeeBucket string) (float64, error) {
	weight, err := l.store.GetTransferWeight(ctx, debitAccountID, creditAccountID, payeeBucket)
	if err != nil {
		return 0, fmt.Errorf("failed to read transfer weight: %w", err)
	}
	return weight.Weight, nil
}

func (l *Learner) adjust(ctx context.Context, debit, credit model.Transaction, delta float64) error {
	bucket := model.PayeeBucket(debit.Payee)

	weight, err := l.store.GetTransferWeight(ctx, debit.AccountID, credit.AccountID, bucket)
	if err != nil {
		return fmt.Errorf("failed to read transfer weight: %w", err)
	}

	weight.Weight += delta
	if weight.Weight > maxWeight {
		weight.Weight = maxWeight
	}
	if weight.Weight < 0 {
		weight.Weight = 0
	}
	weight.UpdatedAt = time.Now()

	if err := l.store.SaveTransferWeight(ctx, weight); err != nil {
		return fmt.Errorf("failed to save transfer weight: %w", err)
	}

	slog.Debug("Adjusted transfer weight",
		"debit_account", debit.AccountID,
		"credit_account", credit.AccountID,
		"payee_bucket", bucket,
		"delta", delta,
		"weight", weight.Weight)

	return nil
}
