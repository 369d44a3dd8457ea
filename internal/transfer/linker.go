package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iammattholland/escapebudget/internal/common"
	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
)

// Linker drives the transfer state machine over Transaction.Kind and
// Transaction.TransferID:
//
//	standard -> transfer-unmatched -> transfer-linked
//
// Every transition validates its preconditions before mutating anything, so
// a failed call leaves both legs untouched. The in-memory mutation set for a
// link or unlink is persisted through a single database transaction.
type Linker struct {
	store   service.Storage
	learner *Learner
}

// NewLinker creates a linker backed by the given store and learner.
func NewLinker(store service.Storage, learner *Learner) *Linker {
	return &Linker{store: store, learner: learner}
}

// MarkUnmatchedTransfer moves a standard transaction to the
// transfer-unmatched state. Fails with ErrAlreadyLinked if the transaction
// is already part of a linked pair.
func (l *Linker) MarkUnmatchedTransfer(ctx context.Context, id string) error {
	txn, err := l.store.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}
	if txn.IsLinkedTransfer() {
		return fmt.Errorf("%w: %s", common.ErrAlreadyLinked, id)
	}
	if txn.Kind == model.KindTransfer {
		return nil
	}

	txn.Kind = model.KindTransfer
	txn.TransferInboxDismissed = false
	if err := l.store.SaveTransaction(ctx, txn); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	l.appendHistory(ctx, txn.ID, fmt.Sprintf("Marked as unmatched transfer (payee %q)", txn.Payee))
	return nil
}

// Link pairs two unmatched transactions as the legs of one transfer. All
// preconditions must hold or the call fails with a descriptive error and no
// partial mutation: neither leg may already carry a transfer ID, the amounts
// must be exact negatives, and the accounts must differ.
//
// On success both legs share a freshly generated transfer ID, become
// transfer kind, lose their category, and reset their inbox-dismissed flag;
// the pair is persisted atomically, history lines are appended for both
// legs, and the learner is trained. wasAutoDetected records whether the pair
// came from a suggestion.
func (l *Linker) Link(ctx context.Context, baseID, matchID string, wasAutoDetected bool) ([]model.Event, error) {
	base, err := l.store.GetTransactionByID(ctx, baseID)
	if err != nil {
		return nil, err
	}
	match, err := l.store.GetTransactionByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if base.TransferID != "" {
		return nil, fmt.Errorf("%w: %s", common.ErrAlreadyLinked, base.ID)
	}
	if match.TransferID != "" {
		return nil, fmt.Errorf("%w: %s", common.ErrAlreadyLinked, match.ID)
	}
	if base.AmountCents()+match.AmountCents() != 0 {
		return nil, fmt.Errorf("%w: %.2f and %.2f", common.ErrAmountMismatch, base.Amount, match.Amount)
	}
	if base.AccountID == match.AccountID {
		return nil, fmt.Errorf("%w: account %s", common.ErrSameAccount, base.AccountID)
	}

	basePrior := base.Snapshot()
	matchPrior := match.Snapshot()

	transferID := uuid.NewString()
	for _, leg := range []*model.Transaction{base, match} {
		leg.TransferID = transferID
		leg.Kind = model.KindTransfer
		leg.CategoryID = nil
		leg.TransferInboxDismissed = false
	}

	if err := l.saveBoth(ctx, base, match); err != nil {
		return nil, err
	}

	l.appendHistory(ctx, base.ID, linkHistoryLine(basePrior, match.ID))
	l.appendHistory(ctx, match.ID, linkHistoryLine(matchPrior, base.ID))

	if l.learner != nil {
		debit, credit := base, match
		if debit.Amount > 0 {
			debit, credit = credit, debit
		}
		if err := l.learner.LearnFromConfirmation(ctx, *debit, *credit, wasAutoDetected); err != nil {
			slog.Warn("Failed to update transfer weights", "error", err)
		}
	}

	slog.Info("Linked transfer",
		"transfer_id", transferID,
		"base", base.ID,
		"match", match.ID,
		"amount", base.Amount)

	return []model.Event{
		{
			Kind:   model.EventTransferLinked,
			Title:  "Transfer linked",
			Detail: fmt.Sprintf("%s and %s linked as transfer %s", base.ID, match.ID, transferID),
		},
	}, nil
}

// Unlink breaks a linked pair, returning both legs to the
// transfer-unmatched state. The transaction may be either leg of the pair.
func (l *Linker) Unlink(ctx context.Context, id string) ([]model.Event, error) {
	txn, err := l.store.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !txn.IsLinkedTransfer() {
		return nil, fmt.Errorf("%w: %s", common.ErrNotATransfer, id)
	}

	legs, err := l.store.GetTransactionsByTransferID(ctx, txn.TransferID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer legs: %w", err)
	}
	if len(legs) != 2 {
		return nil, fmt.Errorf("transfer %s has %d legs, expected 2", txn.TransferID, len(legs))
	}

	transferID := txn.TransferID
	for i := range legs {
		legs[i].TransferID = ""
		legs[i].TransferInboxDismissed = false
	}

	if err := l.saveBoth(ctx, &legs[0], &legs[1]); err != nil {
		return nil, err
	}

	for _, leg := range legs {
		l.appendHistory(ctx, leg.ID, fmt.Sprintf("Unlinked from transfer %s (payee %q)", transferID, leg.Payee))
	}

	slog.Info("Unlinked transfer", "transfer_id", transferID)

	return []model.Event{
		{
			Kind:   model.EventTransferUnlinked,
			Title:  "Transfer unlinked",
			Detail: fmt.Sprintf("%s and %s returned to unmatched", legs[0].ID, legs[1].ID),
		},
	}, nil
}

// ConvertToStandard moves an unmatched transfer back to a standard
// transaction. Linked transfers must be unlinked first through Unlink; this
// asymmetry is intentional.
func (l *Linker) ConvertToStandard(ctx context.Context, id string) error {
	txn, err := l.store.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}
	if txn.IsLinkedTransfer() {
		return fmt.Errorf("%w: %s", common.ErrAlreadyLinked, id)
	}
	if txn.Kind == model.KindStandard {
		return nil
	}

	txn.Kind = model.KindStandard
	txn.TransferInboxDismissed = false
	if err := l.store.SaveTransaction(ctx, txn); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	l.appendHistory(ctx, txn.ID, fmt.Sprintf("Converted back to standard (payee %q)", txn.Payee))
	return nil
}

// DismissFromInbox marks an unmatched transfer as reviewed so the inbox
// stops surfacing it.
func (l *Linker) DismissFromInbox(ctx context.Context, id string, dismissed bool) error {
	txn, err := l.store.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}
	if txn.TransferInboxDismissed == dismissed {
		return nil
	}
	txn.TransferInboxDismissed = dismissed
	return l.store.SaveTransaction(ctx, txn)
}

// saveBoth persists two legs through one database transaction so the pair
// mutation is atomic: both rows land or neither does.
func (l *Linker) saveBoth(ctx context.Context, a, b *model.Transaction) error {
	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.SaveTransaction(ctx, a); err != nil {
		return fmt.Errorf("failed to save leg %s: %w", a.ID, err)
	}
	if err := tx.SaveTransaction(ctx, b); err != nil {
		return fmt.Errorf("failed to save leg %s: %w", b.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer pair: %w", err)
	}
	return nil
}

// appendHistory writes an audit line. History is best-effort and never part
// of the transactional guarantee.
func (l *Linker) appendHistory(ctx context.Context, txnID, detail string) {
	if err := l.store.AppendHistory(ctx, txnID, detail); err != nil {
		slog.Warn("Failed to append history", "transaction", txnID, "error", err)
	}
}

func linkHistoryLine(prior model.TransactionSnapshot, otherID string) string {
	category := "none"
	if prior.CategoryID != nil {
		category = *prior.CategoryID
	}
	return fmt.Sprintf("Linked as transfer with %s (was payee %q, category %s)", otherID, prior.Payee, category)
}
