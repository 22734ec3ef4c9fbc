package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/dtop/internal/actionlog"
	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform/platformtest"
)

type memAudit struct {
	mu      sync.Mutex
	records []actionlog.Record
	failAt  int
}

func (m *memAudit) Append(r actionlog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt >= 0 && len(m.records) == m.failAt {
		return errors.New("disk full")
	}
	m.records = append(m.records, r)
	return nil
}

func newTestSequencer(fake *platformtest.Fake, audit Auditor) *Sequencer {
	dir := desktop.NewDirectory(fake, nil, nil)
	focus := desktop.NewFocusController(fake, dir, desktop.NewGate(), 0, nil)
	focus.SetSleep(func(time.Duration) {})
	s := NewSequencer(focus, fake, audit, nil)
	s.newID = func() string { return "run-test" }
	return s
}

func twoWindows() *platformtest.Fake {
	return platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 100, 100, 800, 600),
	)
}

func TestRunExecutesInOrderAndRestores(t *testing.T) {
	fake := twoWindows()
	audit := &memAudit{failAt: -1}
	s := newTestSequencer(fake, audit)

	actions := []Action{
		{X: 10, Y: 20, Text: "hello"},
		{X: 30, Y: 40},
	}
	report, err := s.Run(context.Background(), "2", actions)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Executed != 2 || report.RunID != "run-test" || report.RestoreErr != nil {
		t.Fatalf("report = %+v", report)
	}

	var kinds []string
	for _, e := range fake.Events() {
		kinds = append(kinds, e.Kind)
	}
	want := []string{"activate", "move", "click", "type", "move", "click", "restore"}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}

	if len(audit.records) != 2 {
		t.Fatalf("audit records = %d, want 2", len(audit.records))
	}
	if r := audit.records[0]; r.X != 10 || r.Y != 20 || r.Text != "hello" || r.WindowID != "2" || r.RunID != "run-test" {
		t.Fatalf("first audit record = %+v", r)
	}
	if r := audit.records[1]; r.X != 30 || r.Y != 40 || r.Text != "" {
		t.Fatalf("second audit record = %+v", r)
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Fatalf("focus after Run = %s, want 1", got)
	}
}

func TestRunUnknownWindow(t *testing.T) {
	fake := twoWindows()
	audit := &memAudit{failAt: -1}
	s := newTestSequencer(fake, audit)

	_, err := s.Run(context.Background(), "999", []Action{{X: 1, Y: 1}})
	if !errors.Is(err, desktop.ErrNotFound) {
		t.Fatalf("Run() error = %v, want ErrNotFound", err)
	}
	if len(fake.Events()) != 0 {
		t.Fatalf("expected no focus or input events, got %+v", fake.Events())
	}
	if len(audit.records) != 0 {
		t.Fatalf("expected no audit records, got %+v", audit.records)
	}
}

func TestRunFocusSnapshotFailure(t *testing.T) {
	fake := twoWindows()
	fake.ActiveFocusErr = errors.New("no active window property")
	audit := &memAudit{failAt: -1}
	s := newTestSequencer(fake, audit)

	report, err := s.Run(context.Background(), "2", []Action{{X: 1, Y: 1}})
	if !errors.Is(err, desktop.ErrFocusSwitch) {
		t.Fatalf("Run() error = %v, want ErrFocusSwitch", err)
	}
	if report.Executed != 0 {
		t.Fatalf("executed = %d, want 0", report.Executed)
	}
	if len(fake.Events()) != 0 {
		t.Fatalf("expected no focus or input events, got %+v", fake.Events())
	}
	if len(audit.records) != 0 {
		t.Fatalf("expected no audit records, got %+v", audit.records)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	fake := twoWindows()
	fake.FailClickAt = 1
	audit := &memAudit{failAt: -1}
	s := newTestSequencer(fake, audit)

	report, err := s.Run(context.Background(), "2", []Action{
		{X: 1, Y: 1, Text: "a"},
		{X: 2, Y: 2, Text: "b"},
		{X: 3, Y: 3, Text: "c"},
	})

	var actionErr *desktop.ActionError
	if !errors.As(err, &actionErr) {
		t.Fatalf("Run() error = %v, want *ActionError", err)
	}
	if actionErr.Index != 1 {
		t.Fatalf("ActionError.Index = %d, want 1", actionErr.Index)
	}
	if !errors.Is(err, desktop.ErrActionReplay) {
		t.Fatalf("error should match ErrActionReplay: %v", err)
	}
	if report.Executed != 1 {
		t.Fatalf("Executed = %d, want 1", report.Executed)
	}
	if len(audit.records) != 1 || audit.records[0].Text != "a" {
		t.Fatalf("audit = %+v, want only the first action", audit.records)
	}
	if fake.Count("type") != 1 {
		t.Fatalf("typed %d times, want 1", fake.Count("type"))
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Fatalf("focus after failure = %s, want 1", got)
	}
}

func TestRunAuditFailureStopsBatch(t *testing.T) {
	fake := twoWindows()
	audit := &memAudit{failAt: 1}
	s := newTestSequencer(fake, audit)

	report, err := s.Run(context.Background(), "2", []Action{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}})

	var actionErr *desktop.ActionError
	if !errors.As(err, &actionErr) || actionErr.Index != 1 {
		t.Fatalf("Run() error = %v, want ActionError at index 1", err)
	}
	if report.Executed != 1 {
		t.Fatalf("Executed = %d, want 1", report.Executed)
	}
	if fake.Count("click") != 2 {
		t.Fatalf("clicks = %d, want 2 (third action skipped)", fake.Count("click"))
	}
}

func TestRunRestoreFailureDoesNotFailRun(t *testing.T) {
	fake := twoWindows()
	audit := &memAudit{failAt: -1}
	s := newTestSequencer(fake, audit)

	fake.ActivateTargetErr = errors.New("window closed")

	report, err := s.Run(context.Background(), "2", []Action{{X: 5, Y: 5}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !errors.Is(report.RestoreErr, desktop.ErrFocusRestore) {
		t.Fatalf("RestoreErr = %v, want ErrFocusRestore", report.RestoreErr)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	fake := twoWindows()
	audit := &memAudit{failAt: -1}
	s := newTestSequencer(fake, audit)

	report, err := s.Run(context.Background(), "2", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Executed != 0 || len(audit.records) != 0 {
		t.Fatalf("report = %+v, audit = %+v", report, audit.records)
	}
	if fake.Count("activate") != 1 || fake.Count("restore") != 1 {
		t.Fatalf("events = %+v", fake.Events())
	}
}
