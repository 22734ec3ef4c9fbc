package platform

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned by Open on hosts without a window backend.
var ErrUnsupported = errors.New("no window backend for this platform")

// WindowID is an opaque, platform-neutral window identifier: the decimal
// X11 window id, the macOS CGWindowNumber, or the Win32 HWND.
type WindowID string

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID        WindowID
	PID       int
	Owner     string // owning application name
	Title     string
	Bounds    Rect
	Minimized bool
}

// DisplayTitle joins owner and title the way the host presents them.
func (w Window) DisplayTitle() string {
	title := strings.TrimSpace(w.Title)
	owner := strings.TrimSpace(w.Owner)
	switch {
	case title == "":
		return owner
	case owner == "" || strings.Contains(title, owner):
		return title
	default:
		return owner + " " + title
	}
}

// FocusTarget records what held input focus. On compositor-based hosts only
// the frontmost application is known (App); handle-based hosts record the
// focused window (WindowID) and its owner.
type FocusTarget struct {
	WindowID WindowID
	App      string
}

// IsZero reports whether nothing was recorded.
func (t FocusTarget) IsZero() bool {
	return t.WindowID == "" && t.App == ""
}

// Matches reports whether w is the recorded focus target.
func (t FocusTarget) Matches(w Window) bool {
	if t.WindowID != "" {
		return t.WindowID == w.ID
	}
	return t.App != "" && t.App == w.Owner
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	// Name identifies the variant ("x11", "darwin", "windows").
	Name() string
	// Windows enumerates top-level windows with current bounds and owner names.
	// It must not change focus or visibility.
	Windows() ([]Window, error)
	// ActiveFocus records the currently focused application or window.
	ActiveFocus() (FocusTarget, error)
	// Activate brings w to the foreground, restoring it first when minimized
	// or obscured.
	Activate(w Window) error
	// ActivateTarget re-activates a previously recorded focus target.
	ActivateTarget(t FocusTarget) error
	Close() error
}

// Inputter synthesizes pointer and keyboard input in screen coordinates.
type Inputter interface {
	MoveMouse(x, y int) error
	Click(x, y int) error
	TypeText(text string) error
}

// Options tunes backend construction.
type Options struct {
	// Display and XAuthority override $DISPLAY / $XAUTHORITY for X11.
	Display    string
	XAuthority string
}

// Desktop is a backend that can also synthesize input.
type Desktop interface {
	Backend
	Inputter
}
