//go:build darwin

package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DarwinBackend drives the macOS window server through osascript. Window
// enumeration uses CoreGraphics via JavaScript for Automation; activation and
// keystrokes go through System Events.
type DarwinBackend struct {
	osascript string
}

var _ Desktop = (*DarwinBackend)(nil)

// Open locates osascript. Accessibility and screen-recording permissions are
// checked lazily by macOS on first use.
func Open(Options) (Desktop, error) {
	path, err := exec.LookPath("osascript")
	if err != nil {
		return nil, fmt.Errorf("osascript not found: %w", err)
	}
	return &DarwinBackend{osascript: path}, nil
}

// Name implements Backend.
func (b *DarwinBackend) Name() string { return "darwin" }

// Close implements Backend.
func (b *DarwinBackend) Close() error { return nil }

// kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements
const listWindowsJXA = `ObjC.import('CoreGraphics');
var raw = $.CGWindowListCopyWindowInfo(1 | 16, 0);
var list = ObjC.deepUnwrap(ObjC.castRefToObject(raw)) || [];
JSON.stringify(list.filter(function (w) { return w.kCGWindowLayer === 0; }).map(function (w) {
  var b = w.kCGWindowBounds || {};
  return {
    id: w.kCGWindowNumber,
    pid: w.kCGWindowOwnerPID,
    owner: w.kCGWindowOwnerName || '',
    title: w.kCGWindowName || '',
    x: b.X || 0, y: b.Y || 0, width: b.Width || 0, height: b.Height || 0
  };
}));`

type cgWindow struct {
	ID     int64   `json:"id"`
	PID    int     `json:"pid"`
	Owner  string  `json:"owner"`
	Title  string  `json:"title"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Windows lists on-screen, layer-0 windows. Titles are presented as
// "owner title" the way the window server reports them together.
func (b *DarwinBackend) Windows() ([]Window, error) {
	out, err := b.run("JavaScript", listWindowsJXA)
	if err != nil {
		return nil, err
	}

	var raw []cgWindow
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode window list: %w", err)
	}

	windows := make([]Window, 0, len(raw))
	for _, w := range raw {
		windows = append(windows, Window{
			ID:    WindowID(strconv.FormatInt(w.ID, 10)),
			PID:   w.PID,
			Owner: w.Owner,
			Title: strings.TrimSpace(w.Owner + " " + w.Title),
			Bounds: Rect{
				X:      int(w.X),
				Y:      int(w.Y),
				Width:  int(w.Width),
				Height: int(w.Height),
			},
		})
	}
	return windows, nil
}

// ActiveFocus returns the frontmost application. Individual windows are not
// addressable through System Events, so only the app is recorded.
func (b *DarwinBackend) ActiveFocus() (FocusTarget, error) {
	out, err := b.run("AppleScript",
		`tell application "System Events" to get name of first application process whose frontmost is true`)
	if err != nil {
		return FocusTarget{}, err
	}
	return FocusTarget{App: strings.TrimSpace(string(out))}, nil
}

// Activate makes the owning process frontmost, which also un-hides it.
func (b *DarwinBackend) Activate(w Window) error {
	var script string
	if w.PID > 0 {
		script = fmt.Sprintf(`tell application "System Events" to set frontmost of first process whose unix id is %d to true`, w.PID)
	} else {
		script = fmt.Sprintf(`tell application %s to activate`, appleScriptString(w.Owner))
	}
	_, err := b.run("AppleScript", script)
	return err
}

// ActivateTarget re-activates a recorded application by name.
func (b *DarwinBackend) ActivateTarget(t FocusTarget) error {
	if t.App == "" {
		return fmt.Errorf("focus target has no application")
	}
	_, err := b.run("AppleScript", fmt.Sprintf(`tell application %s to activate`, appleScriptString(t.App)))
	return err
}

// MoveMouse posts a mouse-moved CGEvent.
func (b *DarwinBackend) MoveMouse(x, y int) error {
	_, err := b.run("JavaScript", mouseEventJXA(x, y, false))
	return err
}

// Click posts a left down/up pair at (x, y).
func (b *DarwinBackend) Click(x, y int) error {
	_, err := b.run("JavaScript", mouseEventJXA(x, y, true))
	return err
}

// TypeText sends text through System Events keystroke.
func (b *DarwinBackend) TypeText(text string) error {
	_, err := b.run("AppleScript",
		fmt.Sprintf(`tell application "System Events" to keystroke %s`, appleScriptString(text)))
	return err
}

func mouseEventJXA(x, y int, click bool) string {
	var sb strings.Builder
	sb.WriteString("ObjC.import('CoreGraphics');\n")
	fmt.Fprintf(&sb, "var p = $.CGPointMake(%d, %d);\n", x, y)
	// kCGEventMouseMoved = 5, kCGEventLeftMouseDown = 1, kCGEventLeftMouseUp = 2
	sb.WriteString("$.CGEventPost(0, $.CGEventCreateMouseEvent(null, 5, p, 0));\n")
	if click {
		sb.WriteString("$.CGEventPost(0, $.CGEventCreateMouseEvent(null, 1, p, 0));\n")
		sb.WriteString("$.CGEventPost(0, $.CGEventCreateMouseEvent(null, 2, p, 0));\n")
	}
	sb.WriteString("'ok';")
	return sb.String()
}

func (b *DarwinBackend) run(language, script string) ([]byte, error) {
	cmd := exec.Command(b.osascript, "-l", language, "-e", script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("osascript: %w", err)
		}
		return nil, fmt.Errorf("osascript: %s: %w", msg, err)
	}
	return out, nil
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
