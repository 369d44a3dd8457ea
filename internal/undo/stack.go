package undo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iammattholland/escapebudget/internal/common"
)

// Manager maintains a linear undo/redo history. Executing a new command
// clears the redo stack. History depth is unbounded within a session.
//
// The manager assumes a single logical thread of control: commands never
// invoke the manager recursively from inside Execute or Undo.
type Manager struct {
	undoStack []Command
	redoStack []Command
}

// NewManager creates an empty undo manager.
func NewManager() *Manager {
	return &Manager{}
}

// Execute runs the command and records it. A command that fails is not
// recorded; commands guarantee they leave no partial side effects on
// failure.
func (m *Manager) Execute(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}

	if err := cmd.Execute(ctx); err != nil {
		return err
	}

	m.undoStack = append(m.undoStack, cmd)
	m.redoStack = nil

	slog.Debug("Executed command", "description", cmd.Description(), "history_depth", len(m.undoStack))
	return nil
}

// Undo reverses the most recent command and moves it to the redo stack. If
// the command's Undo fails (for example the entity it references no longer
// exists), the command is dropped from history entirely rather than left in
// an ambiguous state, and the error is returned so the caller can fall back
// to a direct mutation.
func (m *Manager) Undo(ctx context.Context) error {
	if len(m.undoStack) == 0 {
		return common.ErrNothingToUndo
	}

	cmd := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]

	if err := cmd.Undo(ctx); err != nil {
		slog.Warn("Undo failed, dropping command from history",
			"description", cmd.Description(), "error", err)
		return fmt.Errorf("undo %s: %w", cmd.Description(), err)
	}

	m.redoStack = append(m.redoStack, cmd)
	return nil
}

// Redo re-executes the most recently undone command. A failing redo drops
// the command from history, mirroring Undo.
func (m *Manager) Redo(ctx context.Context) error {
	if len(m.redoStack) == 0 {
		return common.ErrNothingToRedo
	}

	cmd := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]

	if err := cmd.Execute(ctx); err != nil {
		slog.Warn("Redo failed, dropping command from history",
			"description", cmd.Description(), "error", err)
		return fmt.Errorf("redo %s: %w", cmd.Description(), err)
	}

	m.undoStack = append(m.undoStack, cmd)
	return nil
}

// CanUndo reports whether there is a command to undo.
func (m *Manager) CanUndo() bool {
	return len(m.undoStack) > 0
}

// CanRedo reports whether there is a command to redo.
func (m *Manager) CanRedo() bool {
	return len(m.redoStack) > 0
}

// UndoDescription returns the description of the command Undo would
// reverse.
func (m *Manager) UndoDescription() (string, bool) {
	if len(m.undoStack) == 0 {
		return "", false
	}
	return m.undoStack[len(m.undoStack)-1].Description(), true
}

// ClearHistory discards all undo and redo state. Call it whenever prior
// snapshots stop being meaningful, such as after switching datasets.
func (m *Manager) ClearHistory() {
	m.undoStack = nil
	m.redoStack = nil
}
