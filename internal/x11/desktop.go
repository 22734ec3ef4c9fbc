package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// Sends a client message to the root window per EWMH spec. Window managers
// deiconify a minimized window when it is activated this way.
// We build the message manually because the xgbutil ewmh helpers panic on
// this library version (uint vs int type assertion).
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	atom, err := c.internAtom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return err
	}

	const sourceIndication = 2 // pager/direct action
	active, _ := c.GetActiveWindow()
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, uint32(xproto.TimeCurrentTime), uint32(active), 0, 0}),
	}

	return c.sendToRoot(ev)
}

// WindowExists reports whether the server still knows about a window.
func (c *Connection) WindowExists(windowID xproto.Window) bool {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

func (c *Connection) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return reply.Atom, nil
}

func (c *Connection) sendToRoot(ev xproto.ClientMessageEvent) error {
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
