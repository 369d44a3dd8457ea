package model

import "time"

// TransactionSnapshot is an immutable value capture of a transaction's
// fields at a point in time. Undoable commands store snapshots so they can
// reverse a mutation without reloading persisted state.
type TransactionSnapshot struct {
	Date                   time.Time
	CategoryID             *string
	ID                     string
	Payee                  string
	AccountID              string
	TransferID             string
	Memo                   string
	Kind                   TransactionKind
	Status                 TransactionStatus
	Tags                   []string
	Amount                 float64
	TransferInboxDismissed bool
}

// Snapshot captures the transaction's current field values. The returned
// value owns its own tag slice and category pointer, so later mutations of
// the transaction cannot leak into it.
func (t *Transaction) Snapshot() TransactionSnapshot {
	s := TransactionSnapshot{
		Date:                   t.Date,
		ID:                     t.ID,
		Payee:                  t.Payee,
		AccountID:              t.AccountID,
		TransferID:             t.TransferID,
		Memo:                   t.Memo,
		Kind:                   t.Kind,
		Status:                 t.Status,
		Amount:                 t.Amount,
		TransferInboxDismissed: t.TransferInboxDismissed,
	}
	if t.CategoryID != nil {
		cat := *t.CategoryID
		s.CategoryID = &cat
	}
	if len(t.Tags) > 0 {
		s.Tags = make([]string, len(t.Tags))
		copy(s.Tags, t.Tags)
	}
	return s
}

// Restore returns a transaction populated from the snapshot. The hash is
// recomputed from the restored fields.
func (s TransactionSnapshot) Restore() Transaction {
	t := Transaction{
		Date:                   s.Date,
		ID:                     s.ID,
		Payee:                  s.Payee,
		AccountID:              s.AccountID,
		TransferID:             s.TransferID,
		Memo:                   s.Memo,
		Kind:                   s.Kind,
		Status:                 s.Status,
		Amount:                 s.Amount,
		TransferInboxDismissed: s.TransferInboxDismissed,
	}
	if s.CategoryID != nil {
		cat := *s.CategoryID
		t.CategoryID = &cat
	}
	if len(s.Tags) > 0 {
		t.Tags = make([]string, len(s.Tags))
		copy(t.Tags, s.Tags)
	}
	t.Hash = t.GenerateHash()
	return t
}
