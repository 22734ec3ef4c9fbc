package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	// hasXTest reports whether the XTEST extension is available for
	// synthesizing pointer and keyboard input.
	hasXTest bool
}

// NewConnectionDisplay establishes a connection to the given X11 display
// (empty means $DISPLAY) and initializes required extensions.
func NewConnectionDisplay(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	// Keysym lookups for typed text go through the keybind module.
	keybind.Initialize(xu)

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}
	if err := xtest.Init(xu.Conn()); err == nil {
		c.hasXTest = true
	}
	return c, nil
}

// HasXTest reports whether input synthesis is available.
func (c *Connection) HasXTest() bool {
	return c != nil && c.hasXTest
}

func (c *Connection) requireXTest() error {
	if !c.HasXTest() {
		return fmt.Errorf("XTEST extension not available on this display")
	}
	return nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
