//go:build linux

package platform

import (
	"fmt"
	"os"
	"strconv"

	"github.com/1broseidon/dtop/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend wraps an X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Desktop = (*LinuxBackend)(nil)

// Open connects to the X server named by opts (or $DISPLAY).
func Open(opts Options) (Desktop, error) {
	if opts.XAuthority != "" {
		if err := os.Setenv("XAUTHORITY", opts.XAuthority); err != nil {
			return nil, fmt.Errorf("failed to set XAUTHORITY: %w", err)
		}
	}
	conn, err := x11.NewConnectionDisplay(opts.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Name implements Backend.
func (b *LinuxBackend) Name() string { return "x11" }

// Close closes the underlying X11 connection.
func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
	return nil
}

// Windows lists managed normal windows, including minimized ones so they can
// still be targeted and restored.
func (b *LinuxBackend) Windows() ([]Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	clients, err := conn.ClientWindows()
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(clients))
	for _, c := range clients {
		windows = append(windows, Window{
			ID:    formatXID(c.ID),
			PID:   c.PID,
			Owner: c.Class,
			Title: c.Title,
			Bounds: Rect{
				X:      c.X,
				Y:      c.Y,
				Width:  c.Width,
				Height: c.Height,
			},
			Minimized: c.Hidden,
		})
	}
	return windows, nil
}

// ActiveFocus returns the currently active window and its class.
func (b *LinuxBackend) ActiveFocus() (FocusTarget, error) {
	conn, err := b.connection()
	if err != nil {
		return FocusTarget{}, err
	}

	wid, err := conn.GetActiveWindow()
	if err != nil {
		return FocusTarget{}, err
	}
	if wid == 0 {
		return FocusTarget{}, nil
	}
	return FocusTarget{
		WindowID: formatXID(wid),
		App:      conn.WindowClass(wid),
	}, nil
}

// Activate raises and focuses w. _NET_ACTIVE_WINDOW also maps iconified
// windows, so no separate restore step is needed.
func (b *LinuxBackend) Activate(w Window) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	xid, err := parseXID(w.ID)
	if err != nil {
		return err
	}
	return conn.FocusWindow(xid)
}

// ActivateTarget re-focuses a recorded window if it still exists.
func (b *LinuxBackend) ActivateTarget(t FocusTarget) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	if t.WindowID == "" {
		return fmt.Errorf("focus target has no window id")
	}
	xid, err := parseXID(t.WindowID)
	if err != nil {
		return err
	}
	if !conn.WindowExists(xid) {
		return fmt.Errorf("window %s no longer exists", t.WindowID)
	}
	return conn.FocusWindow(xid)
}

// MoveMouse implements Inputter.
func (b *LinuxBackend) MoveMouse(x, y int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MovePointer(x, y)
}

// Click moves to (x, y) and clicks the left button.
func (b *LinuxBackend) Click(x, y int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	if err := conn.MovePointer(x, y); err != nil {
		return err
	}
	return conn.ClickButton(x11.ButtonLeft)
}

// TypeText implements Inputter.
func (b *LinuxBackend) TypeText(text string) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.TypeString(text)
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func formatXID(id xproto.Window) WindowID {
	return WindowID(strconv.FormatUint(uint64(id), 10))
}

func parseXID(id WindowID) (xproto.Window, error) {
	n, err := strconv.ParseUint(string(id), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid X11 window id %q", id)
	}
	return xproto.Window(n), nil
}
