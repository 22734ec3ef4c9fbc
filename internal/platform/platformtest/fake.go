// Package platformtest provides an in-memory platform.Desktop for tests.
package platformtest

import (
	"fmt"
	"sync"

	"github.com/1broseidon/dtop/internal/platform"
)

// Event is one recorded side effect on the fake desktop.
type Event struct {
	Kind   string // "activate", "restore", "move", "click", "type"
	Window platform.WindowID
	App    string
	X, Y   int
	Text   string
}

// Fake is a handle-based desktop: focus is tracked per window, activation
// moves focus, and closed windows cannot be re-activated.
type Fake struct {
	mu      sync.Mutex
	windows []platform.Window
	active  platform.FocusTarget
	events  []Event

	// Error injection.
	ActivateErr       error
	ActivateTargetErr error
	ActiveFocusErr    error
	WindowsErr        error
	// FailClickAt makes the Nth Click (0-based) return ClickErr.
	FailClickAt int
	ClickErr    error
	TypeErr     error

	// OnActivate is called after a successful Activate, while no lock is held.
	OnActivate func(w platform.Window)

	clicks int
}

var _ platform.Desktop = (*Fake)(nil)

// New returns a fake desktop holding windows, with the first one focused.
func New(windows ...platform.Window) *Fake {
	f := &Fake{FailClickAt: -1}
	f.windows = append(f.windows, windows...)
	if len(windows) > 0 {
		f.active = platform.FocusTarget{WindowID: windows[0].ID, App: windows[0].Owner}
	}
	return f
}

// Name implements platform.Backend.
func (f *Fake) Name() string { return "fake" }

// Close implements platform.Backend.
func (f *Fake) Close() error { return nil }

// Windows implements platform.Backend.
func (f *Fake) Windows() ([]platform.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WindowsErr != nil {
		return nil, f.WindowsErr
	}
	return append([]platform.Window(nil), f.windows...), nil
}

// ActiveFocus implements platform.Backend.
func (f *Fake) ActiveFocus() (platform.FocusTarget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ActiveFocusErr != nil {
		return platform.FocusTarget{}, f.ActiveFocusErr
	}
	return f.active, nil
}

// Activate implements platform.Backend.
func (f *Fake) Activate(w platform.Window) error {
	f.mu.Lock()
	if f.ActivateErr != nil {
		f.mu.Unlock()
		return f.ActivateErr
	}
	if _, ok := f.find(w.ID); !ok {
		f.mu.Unlock()
		return fmt.Errorf("window %s does not exist", w.ID)
	}
	f.active = platform.FocusTarget{WindowID: w.ID, App: w.Owner}
	f.events = append(f.events, Event{Kind: "activate", Window: w.ID, App: w.Owner})
	hook := f.OnActivate
	f.mu.Unlock()

	if hook != nil {
		hook(w)
	}
	return nil
}

// ActivateTarget implements platform.Backend.
func (f *Fake) ActivateTarget(t platform.FocusTarget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ActivateTargetErr != nil {
		return f.ActivateTargetErr
	}
	if _, ok := f.find(t.WindowID); !ok {
		return fmt.Errorf("window %s no longer exists", t.WindowID)
	}
	f.active = t
	f.events = append(f.events, Event{Kind: "restore", Window: t.WindowID, App: t.App})
	return nil
}

// MoveMouse implements platform.Inputter.
func (f *Fake) MoveMouse(x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, Event{Kind: "move", X: x, Y: y})
	return nil
}

// Click implements platform.Inputter.
func (f *Fake) Click(x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.clicks
	f.clicks++
	if n == f.FailClickAt {
		if f.ClickErr != nil {
			return f.ClickErr
		}
		return fmt.Errorf("click %d failed", n)
	}
	f.events = append(f.events, Event{Kind: "click", X: x, Y: y})
	return nil
}

// TypeText implements platform.Inputter.
func (f *Fake) TypeText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TypeErr != nil {
		return f.TypeErr
	}
	f.events = append(f.events, Event{Kind: "type", Text: text})
	return nil
}

// SetBounds changes the live geometry of a window.
func (f *Fake) SetBounds(id platform.WindowID, r platform.Rect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i, ok := f.find(id); ok {
		f.windows[i].Bounds = r
	}
}

// CloseWindow removes a window, as if the user closed it.
func (f *Fake) CloseWindow(id platform.WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i, ok := f.find(id); ok {
		f.windows = append(f.windows[:i], f.windows[i+1:]...)
	}
}

// Focus sets the active window without recording an event.
func (f *Fake) Focus(id platform.WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i, ok := f.find(id); ok {
		f.active = platform.FocusTarget{WindowID: id, App: f.windows[i].Owner}
	}
}

// Active returns the current focus target.
func (f *Fake) Active() platform.FocusTarget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Events returns a copy of recorded events.
func (f *Fake) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

// Count returns how many events of kind were recorded.
func (f *Fake) Count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (f *Fake) find(id platform.WindowID) (int, bool) {
	for i, w := range f.windows {
		if w.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Window is a convenience constructor.
func Window(id, owner, title string, x, y, w, h int) platform.Window {
	return platform.Window{
		ID:     platform.WindowID(id),
		Owner:  owner,
		Title:  title,
		Bounds: platform.Rect{X: x, Y: y, Width: w, Height: h},
	}
}
