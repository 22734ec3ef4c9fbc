package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/dtop/internal/platform"
)

// MinInputSettle is the shortest delay allowed between activating a window
// and replaying input into it.
const MinInputSettle = time.Second

// Snapshot is the focus state recorded before a switch. It can be restored
// at most once; later restores are no-ops.
type Snapshot struct {
	target platform.FocusTarget
	once   sync.Once
}

// Target returns the recorded focus target.
func (s *Snapshot) Target() platform.FocusTarget {
	if s == nil {
		return platform.FocusTarget{}
	}
	return s.target
}

// FocusController switches focus to target windows and puts it back.
type FocusController struct {
	backend platform.Backend
	dir     *Directory
	gate    *Gate
	logger  *slog.Logger

	settle atomic.Int64

	// sleep is replaced in tests.
	sleep func(time.Duration)
}

// NewFocusController wires a controller. settle is the default delay after
// a switch; it is raised to MinInputSettle if lower.
func NewFocusController(backend platform.Backend, dir *Directory, gate *Gate, settle time.Duration, logger *slog.Logger) *FocusController {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = NewGate()
	}
	c := &FocusController{
		backend: backend,
		dir:     dir,
		gate:    gate,
		logger:  logger,
		sleep:   time.Sleep,
	}
	c.SetSettleDelay(settle)
	return c
}

// SetSettleDelay updates the default post-switch delay.
func (c *FocusController) SetSettleDelay(d time.Duration) {
	if d < MinInputSettle {
		d = MinInputSettle
	}
	c.settle.Store(int64(d))
}

// SettleDelay returns the default post-switch delay.
func (c *FocusController) SettleDelay() time.Duration {
	return time.Duration(c.settle.Load())
}

// SetSleep overrides how Settle waits. Intended for tests.
func (c *FocusController) SetSleep(fn func(time.Duration)) {
	if fn == nil {
		fn = time.Sleep
	}
	c.sleep = fn
}

// Capture records the active focus without changing anything.
func (c *FocusController) Capture() (*Snapshot, error) {
	t, err := c.backend.ActiveFocus()
	if err != nil {
		return nil, err
	}
	return &Snapshot{target: t}, nil
}

// Switch brings w to the foreground.
func (c *FocusController) Switch(ctx context.Context, w platform.Window) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.backend.Activate(w); err != nil {
		return fmt.Errorf("%w: window %s: %v", ErrFocusSwitch, w.ID, err)
	}
	c.logger.Debug("focus switched", "window_id", w.ID, "owner", w.Owner)
	return nil
}

// Settle waits d, or the default settle delay when d is zero. It does not
// observe cancellation: once focus has moved the operation runs to the end.
func (c *FocusController) Settle(d time.Duration) {
	if d <= 0 {
		d = c.SettleDelay()
	}
	c.sleep(d)
}

// Restore re-activates the snapshot target unless current already is that
// target. Failures are logged and returned wrapped in ErrFocusRestore; they
// never represent a failure of the surrounding operation.
func (c *FocusController) Restore(snap *Snapshot, current platform.Window) error {
	if snap == nil {
		return nil
	}
	var err error
	snap.once.Do(func() {
		t := snap.target
		if t.IsZero() || t.Matches(current) {
			return
		}
		if aerr := c.backend.ActivateTarget(t); aerr != nil {
			err = fmt.Errorf("%w: %v", ErrFocusRestore, aerr)
			c.logger.Warn("failed to restore focus",
				"window_id", t.WindowID,
				"app", t.App,
				"error", aerr)
			return
		}
		c.logger.Debug("focus restored", "window_id", t.WindowID, "app", t.App)
	})
	return err
}

// ScopeOptions tunes a Scoped run.
type ScopeOptions struct {
	// Settle overrides the controller's default post-switch delay.
	Settle time.Duration
}

// Outcome describes the focus side of a Scoped run.
type Outcome struct {
	Target     platform.Window
	RestoreErr error
}

// Scoped runs fn with window id focused.
//
// The gate is acquired first (cancellable), then the window is resolved so
// an unknown id fails before focus moves. After the switch, fn receives a
// context that ignores cancellation and restore is always attempted.
func (c *FocusController) Scoped(ctx context.Context, id platform.WindowID, opts ScopeOptions, fn func(ctx context.Context, target platform.Window) error) (Outcome, error) {
	if err := c.gate.Acquire(ctx); err != nil {
		return Outcome{}, err
	}
	defer c.gate.Release()

	target, err := c.dir.Resolve(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Target: target}

	// Without a snapshot focus could not be put back, so nothing moves.
	snap, err := c.Capture()
	if err != nil {
		return out, fmt.Errorf("%w: could not record current focus: %v", ErrFocusSwitch, err)
	}

	if err := c.Switch(ctx, target); err != nil {
		if rerr := c.Restore(snap, platform.Window{}); rerr != nil {
			out.RestoreErr = rerr
		}
		return out, err
	}

	c.Settle(opts.Settle)

	runErr := fn(context.WithoutCancel(ctx), target)

	if rerr := c.Restore(snap, target); rerr != nil {
		out.RestoreErr = rerr
	}
	return out, runErr
}
