package desktop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/dtop/internal/platform"
	"github.com/1broseidon/dtop/internal/platform/platformtest"
)

func newTestController(fake *platformtest.Fake) (*FocusController, *[]time.Duration) {
	var mu sync.Mutex
	var slept []time.Duration
	c := NewFocusController(fake, NewDirectory(fake, nil, nil), NewGate(), 0, nil)
	c.SetSleep(func(d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	})
	return c, &slept
}

func TestScopedSwitchesAndRestores(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 100, 100, 800, 600),
	)
	c, slept := newTestController(fake)

	var sawActive platform.FocusTarget
	out, err := c.Scoped(context.Background(), "2", ScopeOptions{}, func(ctx context.Context, w platform.Window) error {
		sawActive = fake.Active()
		return nil
	})
	if err != nil {
		t.Fatalf("Scoped() error = %v", err)
	}
	if out.RestoreErr != nil {
		t.Fatalf("RestoreErr = %v", out.RestoreErr)
	}
	if out.Target.ID != "2" {
		t.Fatalf("Target = %s, want 2", out.Target.ID)
	}
	if sawActive.WindowID != "2" {
		t.Fatalf("fn ran with %s focused, want 2", sawActive.WindowID)
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Fatalf("focus after Scoped = %s, want 1", got)
	}
	if len(*slept) != 1 || (*slept)[0] != MinInputSettle {
		t.Fatalf("settle delays = %v, want [%v]", *slept, MinInputSettle)
	}
}

func TestScopedNotFoundDoesNotSwitch(t *testing.T) {
	fake := platformtest.New(platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600))
	c, _ := newTestController(fake)

	called := false
	_, err := c.Scoped(context.Background(), "999", ScopeOptions{}, func(context.Context, platform.Window) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Scoped() error = %v, want ErrNotFound", err)
	}
	if called {
		t.Fatal("fn must not run for unknown window")
	}
	if n := len(fake.Events()); n != 0 {
		t.Fatalf("expected no focus changes, got %+v", fake.Events())
	}
}

func TestScopedRestoreSkippedWhenAlreadyFocused(t *testing.T) {
	fake := platformtest.New(platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600))
	c, _ := newTestController(fake)

	if _, err := c.Scoped(context.Background(), "1", ScopeOptions{}, func(context.Context, platform.Window) error { return nil }); err != nil {
		t.Fatalf("Scoped() error = %v", err)
	}
	if n := fake.Count("restore"); n != 0 {
		t.Fatalf("restore count = %d, want 0", n)
	}
}

func TestScopedRestoreFailureIsReportedNotFatal(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 800, 600),
	)
	c, _ := newTestController(fake)

	out, err := c.Scoped(context.Background(), "2", ScopeOptions{}, func(context.Context, platform.Window) error {
		fake.CloseWindow("1")
		return nil
	})
	if err != nil {
		t.Fatalf("Scoped() error = %v, want nil", err)
	}
	if !errors.Is(out.RestoreErr, ErrFocusRestore) {
		t.Fatalf("RestoreErr = %v, want ErrFocusRestore", out.RestoreErr)
	}
}

func TestScopedRestoresAfterFnError(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 800, 600),
	)
	c, _ := newTestController(fake)

	boom := errors.New("boom")
	_, err := c.Scoped(context.Background(), "2", ScopeOptions{}, func(context.Context, platform.Window) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Scoped() error = %v, want boom", err)
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Fatalf("focus after failed fn = %s, want 1", got)
	}
}

func TestScopedSwitchFailure(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 800, 600),
	)
	fake.ActivateErr = errors.New("denied")
	c, _ := newTestController(fake)

	called := false
	_, err := c.Scoped(context.Background(), "2", ScopeOptions{}, func(context.Context, platform.Window) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrFocusSwitch) {
		t.Fatalf("Scoped() error = %v, want ErrFocusSwitch", err)
	}
	if called {
		t.Fatal("fn must not run when the switch fails")
	}
}

func TestScopedFocusSnapshotFailureAborts(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 800, 600),
	)
	fake.ActiveFocusErr = errors.New("no active window property")
	c, _ := newTestController(fake)

	called := false
	_, err := c.Scoped(context.Background(), "2", ScopeOptions{}, func(context.Context, platform.Window) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrFocusSwitch) {
		t.Fatalf("Scoped() error = %v, want ErrFocusSwitch", err)
	}
	if called {
		t.Fatal("fn must not run when focus cannot be recorded")
	}
	if n := fake.Count("activate"); n != 0 {
		t.Fatalf("activate count = %d, want 0", n)
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Fatalf("focus = %s, want 1", got)
	}
}

func TestScopedFnContextIgnoresCancellation(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 800, 600),
	)
	c, _ := newTestController(fake)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.Scoped(ctx, "2", ScopeOptions{}, func(fnCtx context.Context, _ platform.Window) error {
		cancel()
		return fnCtx.Err()
	})
	if err != nil {
		t.Fatalf("fn context was cancelled: %v", err)
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Fatalf("focus = %s, want restored to 1", got)
	}
}

func TestScopedExplicitSettle(t *testing.T) {
	fake := platformtest.New(platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600))
	c, slept := newTestController(fake)

	_, _ = c.Scoped(context.Background(), "1", ScopeOptions{Settle: 300 * time.Millisecond}, func(context.Context, platform.Window) error { return nil })
	if len(*slept) != 1 || (*slept)[0] != 300*time.Millisecond {
		t.Fatalf("settle delays = %v, want [300ms]", *slept)
	}
}

func TestRestoreConsumesSnapshotOnce(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 800, 600),
	)
	c, _ := newTestController(fake)

	snap, err := c.Capture()
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if snap.Target().WindowID != "1" {
		t.Fatalf("snapshot = %+v", snap.Target())
	}
	fake.Focus("2")

	current := platformtest.Window("2", "Editor", "main.go", 0, 0, 800, 600)
	if err := c.Restore(snap, current); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	fake.Focus("2")
	if err := c.Restore(snap, current); err != nil {
		t.Fatalf("second Restore() error = %v", err)
	}
	if n := fake.Count("restore"); n != 1 {
		t.Fatalf("restore count = %d, want 1", n)
	}
	if err := c.Restore(nil, current); err != nil {
		t.Fatalf("Restore(nil) error = %v", err)
	}
}

func TestSettleDelayFloor(t *testing.T) {
	c, _ := newTestController(platformtest.New())
	c.SetSettleDelay(10 * time.Millisecond)
	if got := c.SettleDelay(); got != MinInputSettle {
		t.Fatalf("SettleDelay() = %v, want %v", got, MinInputSettle)
	}
	c.SetSettleDelay(2 * time.Second)
	if got := c.SettleDelay(); got != 2*time.Second {
		t.Fatalf("SettleDelay() = %v, want 2s", got)
	}
}

func TestGateSerializesScopedRuns(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 800, 600),
	)
	c, _ := newTestController(fake)

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Scoped(context.Background(), "2", ScopeOptions{}, func(context.Context, platform.Window) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("Scoped() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := maxInside.Load(); got != 1 {
		t.Fatalf("max concurrent scoped runs = %d, want 1", got)
	}
}

func TestGateAcquireHonorsContext(t *testing.T) {
	g := NewGate()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() on held gate error = %v, want DeadlineExceeded", err)
	}
}
