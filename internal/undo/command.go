// Package undo implements reversible commands and a linear undo/redo
// history over the transaction store.
package undo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
	"github.com/iammattholland/escapebudget/internal/transfer"
)

// Command is a reversible unit of mutation. Execute validates its
// preconditions before touching anything, so a failed Execute leaves no
// partial side effects. A command stores enough snapshot state internally to
// reverse itself without reloading persisted data.
type Command interface {
	Description() string
	Execute(ctx context.Context) error
	Undo(ctx context.Context) error
}

// AddTransactionCommand inserts a transaction. Each Execute mints a fresh
// ID, so redoing an undone add recreates the transaction under a new
// identity with equivalent field values.
type AddTransactionCommand struct {
	store      service.Storage
	snapshot   model.TransactionSnapshot
	insertedID string
}

// NewAddTransactionCommand captures the transaction's field values; the ID
// on the passed transaction is ignored.
func NewAddTransactionCommand(store service.Storage, txn model.Transaction) *AddTransactionCommand {
	return &AddTransactionCommand{store: store, snapshot: txn.Snapshot()}
}

// Description implements Command.
func (c *AddTransactionCommand) Description() string {
	return fmt.Sprintf("Add transaction %q", c.snapshot.Payee)
}

// Execute implements Command.
func (c *AddTransactionCommand) Execute(ctx context.Context) error {
	txn := c.snapshot.Restore()
	txn.ID = uuid.NewString()
	txn.Hash = txn.GenerateHash()

	if err := c.store.SaveTransaction(ctx, &txn); err != nil {
		return fmt.Errorf("failed to add transaction: %w", err)
	}
	c.insertedID = txn.ID
	return nil
}

// Undo implements Command.
func (c *AddTransactionCommand) Undo(ctx context.Context) error {
	if c.insertedID == "" {
		return fmt.Errorf("add command was never executed")
	}
	if err := c.store.DeleteTransaction(ctx, c.insertedID); err != nil {
		return fmt.Errorf("failed to remove added transaction: %w", err)
	}
	c.insertedID = ""
	return nil
}

// DeleteTransactionCommand removes a transaction, keeping a snapshot so Undo
// can recreate it. The recreated transaction carries a new identity; only
// its field values survive the round trip.
type DeleteTransactionCommand struct {
	store    service.Storage
	targetID string
	snapshot model.TransactionSnapshot
	captured bool
}

// NewDeleteTransactionCommand creates a command that deletes the transaction
// with the given ID.
func NewDeleteTransactionCommand(store service.Storage, id string) *DeleteTransactionCommand {
	return &DeleteTransactionCommand{store: store, targetID: id}
}

// Description implements Command.
func (c *DeleteTransactionCommand) Description() string {
	return fmt.Sprintf("Delete transaction %s", c.targetID)
}

// Execute implements Command.
func (c *DeleteTransactionCommand) Execute(ctx context.Context) error {
	txn, err := c.store.GetTransactionByID(ctx, c.targetID)
	if err != nil {
		return err
	}
	c.snapshot = txn.Snapshot()
	c.captured = true

	if err := c.store.DeleteTransaction(ctx, c.targetID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

// Undo implements Command.
func (c *DeleteTransactionCommand) Undo(ctx context.Context) error {
	if !c.captured {
		return fmt.Errorf("delete command was never executed")
	}
	txn := c.snapshot.Restore()
	txn.ID = uuid.NewString()
	txn.Hash = txn.GenerateHash()

	if err := c.store.SaveTransaction(ctx, &txn); err != nil {
		return fmt.Errorf("failed to restore deleted transaction: %w", err)
	}
	// Redoing the delete must target the recreated row.
	c.targetID = txn.ID
	return nil
}

// UpdateTransactionCommand applies field edits to an existing transaction,
// snapshotting the prior state for reversal.
type UpdateTransactionCommand struct {
	store  service.Storage
	after  model.TransactionSnapshot
	before model.TransactionSnapshot
}

// NewUpdateTransactionCommand creates a command that replaces the stored
// transaction's fields with those of updated. The stored state is captured
// at execute time.
func NewUpdateTransactionCommand(store service.Storage, updated model.Transaction) *UpdateTransactionCommand {
	return &UpdateTransactionCommand{store: store, after: updated.Snapshot()}
}

// Description implements Command.
func (c *UpdateTransactionCommand) Description() string {
	return fmt.Sprintf("Edit transaction %s", c.after.ID)
}

// Execute implements Command.
func (c *UpdateTransactionCommand) Execute(ctx context.Context) error {
	current, err := c.store.GetTransactionByID(ctx, c.after.ID)
	if err != nil {
		return err
	}
	c.before = current.Snapshot()

	txn := c.after.Restore()
	if err := c.store.SaveTransaction(ctx, &txn); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

// Undo implements Command.
func (c *UpdateTransactionCommand) Undo(ctx context.Context) error {
	if _, err := c.store.GetTransactionByID(ctx, c.before.ID); err != nil {
		return err
	}
	txn := c.before.Restore()
	if err := c.store.SaveTransaction(ctx, &txn); err != nil {
		return fmt.Errorf("failed to revert transaction: %w", err)
	}
	return nil
}

// LinkTransferCommand links two transactions as a transfer pair through the
// linker. Execute snapshots both legs first, so Undo restores their exact
// prior state, kind and category included, rather than resetting them to
// unmatched.
type LinkTransferCommand struct {
	store           service.Storage
	linker          *transfer.Linker
	baseID          string
	matchID         string
	wasAutoDetected bool
	legs            []model.TransactionSnapshot
}

// NewLinkTransferCommand creates a command linking base and match.
func NewLinkTransferCommand(store service.Storage, linker *transfer.Linker, baseID, matchID string, wasAutoDetected bool) *LinkTransferCommand {
	return &LinkTransferCommand{
		store:           store,
		linker:          linker,
		baseID:          baseID,
		matchID:         matchID,
		wasAutoDetected: wasAutoDetected,
	}
}

// Description implements Command.
func (c *LinkTransferCommand) Description() string {
	return fmt.Sprintf("Link transfer %s <-> %s", c.baseID, c.matchID)
}

// Execute implements Command.
func (c *LinkTransferCommand) Execute(ctx context.Context) error {
	base, err := c.store.GetTransactionByID(ctx, c.baseID)
	if err != nil {
		return err
	}
	match, err := c.store.GetTransactionByID(ctx, c.matchID)
	if err != nil {
		return err
	}
	c.legs = []model.TransactionSnapshot{base.Snapshot(), match.Snapshot()}

	if _, err := c.linker.Link(ctx, c.baseID, c.matchID, c.wasAutoDetected); err != nil {
		c.legs = nil
		return err
	}
	return nil
}

// Undo restores both legs from their pre-link snapshots.
func (c *LinkTransferCommand) Undo(ctx context.Context) error {
	if len(c.legs) != 2 {
		return fmt.Errorf("link command was never executed")
	}

	tx, err := c.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, snap := range c.legs {
		if _, err := tx.GetTransactionByID(ctx, snap.ID); err != nil {
			return err
		}
		txn := snap.Restore()
		if err := tx.SaveTransaction(ctx, &txn); err != nil {
			return fmt.Errorf("failed to restore leg %s: %w", snap.ID, err)
		}
	}

	return tx.Commit()
}

// UnlinkTransferCommand breaks a linked pair, restoring the original link
// state (including the shared transfer ID) on Undo.
type UnlinkTransferCommand struct {
	store    service.Storage
	linker   *transfer.Linker
	targetID string
	legs     []model.TransactionSnapshot
}

// NewUnlinkTransferCommand creates a command unlinking the transfer that id
// belongs to.
func NewUnlinkTransferCommand(store service.Storage, linker *transfer.Linker, id string) *UnlinkTransferCommand {
	return &UnlinkTransferCommand{store: store, linker: linker, targetID: id}
}

// Description implements Command.
func (c *UnlinkTransferCommand) Description() string {
	return fmt.Sprintf("Unlink transfer of %s", c.targetID)
}

// Execute implements Command.
func (c *UnlinkTransferCommand) Execute(ctx context.Context) error {
	txn, err := c.store.GetTransactionByID(ctx, c.targetID)
	if err != nil {
		return err
	}
	if txn.TransferID != "" {
		legs, err := c.store.GetTransactionsByTransferID(ctx, txn.TransferID)
		if err != nil {
			return fmt.Errorf("failed to load transfer legs: %w", err)
		}
		c.legs = c.legs[:0]
		for _, leg := range legs {
			c.legs = append(c.legs, leg.Snapshot())
		}
	}

	_, err = c.linker.Unlink(ctx, c.targetID)
	return err
}

// Undo restores both legs from their snapshots, reviving the original
// shared transfer ID without retraining the learner.
func (c *UnlinkTransferCommand) Undo(ctx context.Context) error {
	if len(c.legs) != 2 {
		return fmt.Errorf("unlink command has no captured legs")
	}

	tx, err := c.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, snap := range c.legs {
		if _, err := tx.GetTransactionByID(ctx, snap.ID); err != nil {
			return err
		}
		txn := snap.Restore()
		if err := tx.SaveTransaction(ctx, &txn); err != nil {
			return fmt.Errorf("failed to restore leg %s: %w", snap.ID, err)
		}
	}

	return tx.Commit()
}
