// Package automation replays scripted clicks and keystrokes into a window.
package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/1broseidon/dtop/internal/actionlog"
	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
	"github.com/google/uuid"
)

// Action is one click at screen coordinates, optionally followed by typing.
type Action struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Text string `json:"text,omitempty"`
}

// Auditor persists one record per executed action.
type Auditor interface {
	Append(r actionlog.Record) error
}

// Report summarizes a run.
type Report struct {
	RunID    string
	WindowID platform.WindowID
	// Executed counts actions that completed and were audited.
	Executed   int
	RestoreErr error
}

// Sequencer runs action batches under the focus gate.
type Sequencer struct {
	focus  *desktop.FocusController
	input  platform.Inputter
	audit  Auditor
	logger *slog.Logger

	newID func() string
}

// NewSequencer wires a sequencer.
func NewSequencer(focus *desktop.FocusController, input platform.Inputter, audit Auditor, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		focus:  focus,
		input:  input,
		audit:  audit,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Run focuses windowID, waits the input settle delay, and executes actions in
// order: move, click, type. The first failure stops the batch and is
// returned as *desktop.ActionError; earlier actions stay executed and
// audited. Previous focus is restored whether or not the batch succeeded.
func (s *Sequencer) Run(ctx context.Context, windowID platform.WindowID, actions []Action) (Report, error) {
	report := Report{RunID: s.newID(), WindowID: windowID}
	logger := s.logger.With("run_id", report.RunID, "window_id", windowID)

	out, err := s.focus.Scoped(ctx, windowID, desktop.ScopeOptions{}, func(ctx context.Context, _ platform.Window) error {
		for i, a := range actions {
			if err := s.execute(a); err != nil {
				return &desktop.ActionError{Index: i, Err: err}
			}
			rec := actionlog.Record{
				RunID:    report.RunID,
				WindowID: string(windowID),
				X:        a.X,
				Y:        a.Y,
				Text:     a.Text,
			}
			if err := s.audit.Append(rec); err != nil {
				return &desktop.ActionError{Index: i, Err: fmt.Errorf("audit: %w", err)}
			}
			report.Executed++
			logger.Debug("action complete", "index", i, "x", a.X, "y", a.Y, "chars", len(a.Text))
		}
		return nil
	})
	report.RestoreErr = out.RestoreErr

	if err != nil {
		logger.Error("automation failed", "executed", report.Executed, "total", len(actions), "error", err)
		return report, err
	}
	logger.Info("automation complete", "executed", report.Executed)
	return report, nil
}

func (s *Sequencer) execute(a Action) error {
	if err := s.input.MoveMouse(a.X, a.Y); err != nil {
		return fmt.Errorf("move to (%d, %d): %w", a.X, a.Y, err)
	}
	if err := s.input.Click(a.X, a.Y); err != nil {
		return fmt.Errorf("click at (%d, %d): %w", a.X, a.Y, err)
	}
	if a.Text != "" {
		if err := s.input.TypeText(a.Text); err != nil {
			return fmt.Errorf("type text: %w", err)
		}
	}
	return nil
}
