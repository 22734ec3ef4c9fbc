package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil/keybind"
)

// Pointer button numbers as defined by the core protocol.
const ButtonLeft byte = 1

// MovePointer warps the pointer to root coordinates via XTEST.
func (c *Connection) MovePointer(x, y int) error {
	if err := c.requireXTest(); err != nil {
		return err
	}
	return c.fakeInput(xproto.MotionNotify, 0, x, y)
}

// ClickButton presses and releases a pointer button at the current position.
func (c *Connection) ClickButton(button byte) error {
	if err := c.requireXTest(); err != nil {
		return err
	}
	if err := c.fakeInput(xproto.ButtonPress, button, 0, 0); err != nil {
		return err
	}
	return c.fakeInput(xproto.ButtonRelease, button, 0, 0)
}

// TypeString emits key press/release pairs for every rune in s. Runes with no
// keysym on the current keyboard mapping fail the whole call before anything
// is typed.
func (c *Connection) TypeString(s string) error {
	if err := c.requireXTest(); err != nil {
		return err
	}

	type stroke struct {
		code  xproto.Keycode
		shift bool
	}
	strokes := make([]stroke, 0, len(s))
	for _, r := range s {
		name, shift, ok := KeysymName(r)
		if !ok {
			return fmt.Errorf("no keysym for %q", r)
		}
		codes := keybind.StrToKeycodes(c.XUtil, name)
		if len(codes) == 0 {
			return fmt.Errorf("keysym %s is not mapped on this keyboard", name)
		}
		strokes = append(strokes, stroke{code: codes[0], shift: shift})
	}

	var shiftCode xproto.Keycode
	if codes := keybind.StrToKeycodes(c.XUtil, "Shift_L"); len(codes) > 0 {
		shiftCode = codes[0]
	}

	for _, st := range strokes {
		if st.shift && shiftCode != 0 {
			if err := c.fakeInput(xproto.KeyPress, byte(shiftCode), 0, 0); err != nil {
				return err
			}
		}
		if err := c.fakeInput(xproto.KeyPress, byte(st.code), 0, 0); err != nil {
			return err
		}
		if err := c.fakeInput(xproto.KeyRelease, byte(st.code), 0, 0); err != nil {
			return err
		}
		if st.shift && shiftCode != 0 {
			if err := c.fakeInput(xproto.KeyRelease, byte(shiftCode), 0, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Connection) fakeInput(eventType byte, detail byte, x, y int) error {
	return xtest.FakeInputChecked(
		c.XUtil.Conn(),
		eventType,
		detail,
		0, // CurrentTime
		c.Root,
		int16(x), int16(y),
		0,
	).Check()
}

var punctuationKeysyms = map[rune]struct {
	name  string
	shift bool
}{
	' ':  {"space", false},
	'\n': {"Return", false},
	'\t': {"Tab", false},
	'-':  {"minus", false},
	'=':  {"equal", false},
	'[':  {"bracketleft", false},
	']':  {"bracketright", false},
	'\\': {"backslash", false},
	';':  {"semicolon", false},
	'\'': {"apostrophe", false},
	',':  {"comma", false},
	'.':  {"period", false},
	'/':  {"slash", false},
	'`':  {"grave", false},
	'!':  {"exclam", true},
	'@':  {"at", true},
	'#':  {"numbersign", true},
	'$':  {"dollar", true},
	'%':  {"percent", true},
	'^':  {"asciicircum", true},
	'&':  {"ampersand", true},
	'*':  {"asterisk", true},
	'(':  {"parenleft", true},
	')':  {"parenright", true},
	'_':  {"underscore", true},
	'+':  {"plus", true},
	'{':  {"braceleft", true},
	'}':  {"braceright", true},
	'|':  {"bar", true},
	':':  {"colon", true},
	'"':  {"quotedbl", true},
	'<':  {"less", true},
	'>':  {"greater", true},
	'?':  {"question", true},
	'~':  {"asciitilde", true},
}

// KeysymName maps a rune to its X keysym name and whether Shift must be held
// on a US layout. Only printable ASCII plus newline and tab are supported.
func KeysymName(r rune) (name string, shift bool, ok bool) {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return string(r), false, true
	case r >= 'A' && r <= 'Z':
		return string(r), true, true
	}
	if p, found := punctuationKeysyms[r]; found {
		return p.name, p.shift, true
	}
	if r == '\r' {
		return "Return", false, true
	}
	return "", false, false
}
