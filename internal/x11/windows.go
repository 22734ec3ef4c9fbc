package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// ClientWindow is a managed top-level window as reported by the window manager.
type ClientWindow struct {
	ID     xproto.Window
	PID    int
	Class  string
	Title  string
	X      int
	Y      int
	Width  int
	Height int
	Hidden bool
}

// ClientWindows returns every normal, taskbar-visible client in
// _NET_CLIENT_LIST. Windows whose geometry can no longer be read (closed
// between the list query and the geometry query) are skipped.
func (c *Connection) ClientWindows() ([]ClientWindow, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, err
	}

	out := make([]ClientWindow, 0, len(clients))
	for _, id := range clients {
		if !c.IsNormalWindow(id) {
			continue
		}
		states := c.WindowStates(id)
		if hasState(states, "_NET_WM_STATE_SKIP_TASKBAR") {
			continue
		}
		x, y, w, h, ok := c.WindowGeometry(id)
		if !ok {
			continue
		}

		pid := 0
		if p, err := ewmh.WmPidGet(c.XUtil, id); err == nil {
			pid = int(p)
		}

		out = append(out, ClientWindow{
			ID:     id,
			PID:    pid,
			Class:  c.WindowClass(id),
			Title:  c.WindowTitle(id),
			X:      x,
			Y:      y,
			Width:  w,
			Height: h,
			Hidden: hasState(states, "_NET_WM_STATE_HIDDEN"),
		})
	}
	return out, nil
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" || t == "_NET_WM_WINDOW_TYPE_DIALOG" {
			return true
		}
		// Reject desktop, dock, splash, etc.
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// GetActiveWindow returns the window named by _NET_ACTIVE_WINDOW.
func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// WindowGeometry returns the root-relative position and size of a window's
// client area. Window manager decorations are not included.
func (c *Connection) WindowGeometry(windowID xproto.Window) (x, y, width, height int, ok bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), true
}

// WindowStates returns the _NET_WM_STATE atoms set on a window.
func (c *Connection) WindowStates(windowID xproto.Window) []string {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return nil
	}
	return states
}

// WindowClass returns the WM_CLASS class part, which names the owning application.
func (c *Connection) WindowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// WindowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

func hasState(states []string, want string) bool {
	for _, s := range states {
		if s == want {
			return true
		}
	}
	return false
}
