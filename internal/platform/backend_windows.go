//go:build windows

package platform

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsIconic                 = user32.NewProc("IsIconic")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procShowWindow               = user32.NewProc("ShowWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procSetCursorPos             = user32.NewProc("SetCursorPos")
	procSendInput                = user32.NewProc("SendInput")
)

const (
	swMinimize = 6
	swRestore  = 9

	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfLeftDown = 0x0002
	mouseeventfLeftUp   = 0x0004

	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004

	// Windows blocks SetForegroundWindow until the minimize animation completes.
	restoreDelay = 150 * time.Millisecond
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type mouseInput struct {
	Dx, Dy    int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type keybdInput struct {
	Vk, Scan  uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// INPUT is a tagged union sized for its largest member (MOUSEINPUT).
type mouseEvent struct {
	Type uint32
	Mi   mouseInput
}

type keyEvent struct {
	Type uint32
	Ki   keybdInput
	_    [8]byte
}

// The runtime caps the number of callbacks, so one is shared by all calls.
var (
	enumMu       sync.Mutex
	enumHandles  []windows.HWND
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumHandles = append(enumHandles, hwnd)
		return 1
	})
)

// WindowsBackend drives user32 directly.
type WindowsBackend struct{}

var _ Desktop = (*WindowsBackend)(nil)

// Open returns the user32 backend.
func Open(Options) (Desktop, error) {
	if err := procEnumWindows.Find(); err != nil {
		return nil, fmt.Errorf("user32 unavailable: %w", err)
	}
	return &WindowsBackend{}, nil
}

// Name implements Backend.
func (b *WindowsBackend) Name() string { return "windows" }

// Close implements Backend.
func (b *WindowsBackend) Close() error { return nil }

// Windows enumerates visible top-level windows that have a title.
func (b *WindowsBackend) Windows() ([]Window, error) {
	enumMu.Lock()
	enumHandles = enumHandles[:0]
	r, _, err := procEnumWindows.Call(enumCallback, 0)
	handles := append([]windows.HWND(nil), enumHandles...)
	enumMu.Unlock()
	if r == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}

	out := make([]Window, 0, len(handles))
	for _, hwnd := range handles {
		if visible, _, _ := procIsWindowVisible.Call(uintptr(hwnd)); visible == 0 {
			continue
		}
		title := windowText(hwnd)
		if title == "" {
			continue
		}
		var r rect
		if ok, _, _ := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r))); ok == 0 {
			continue
		}
		pid := windowPID(hwnd)
		iconic, _, _ := procIsIconic.Call(uintptr(hwnd))
		out = append(out, Window{
			ID:    formatHWND(hwnd),
			PID:   pid,
			Owner: processName(pid),
			Title: title,
			Bounds: Rect{
				X:      int(r.Left),
				Y:      int(r.Top),
				Width:  int(r.Right - r.Left),
				Height: int(r.Bottom - r.Top),
			},
			Minimized: iconic != 0,
		})
	}
	return out, nil
}

// ActiveFocus records the foreground window.
func (b *WindowsBackend) ActiveFocus() (FocusTarget, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return FocusTarget{}, nil
	}
	h := windows.HWND(hwnd)
	return FocusTarget{WindowID: formatHWND(h), App: processName(windowPID(h))}, nil
}

// Activate minimizes then restores the window before requesting foreground,
// which lets SetForegroundWindow succeed from a background process.
func (b *WindowsBackend) Activate(w Window) error {
	hwnd, err := parseHWND(w.ID)
	if err != nil {
		return err
	}
	return activate(hwnd)
}

// ActivateTarget re-activates a recorded foreground window if it still exists.
func (b *WindowsBackend) ActivateTarget(t FocusTarget) error {
	if t.WindowID == "" {
		return fmt.Errorf("focus target has no window handle")
	}
	hwnd, err := parseHWND(t.WindowID)
	if err != nil {
		return err
	}
	if ok, _, _ := procIsWindow.Call(uintptr(hwnd)); ok == 0 {
		return fmt.Errorf("window %s no longer exists", t.WindowID)
	}
	return activate(hwnd)
}

// MoveMouse implements Inputter.
func (b *WindowsBackend) MoveMouse(x, y int) error {
	if ok, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y)); ok == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	return nil
}

// Click moves to (x, y) and sends a left button down/up pair.
func (b *WindowsBackend) Click(x, y int) error {
	if err := b.MoveMouse(x, y); err != nil {
		return err
	}
	events := []mouseEvent{
		{Type: inputMouse, Mi: mouseInput{Flags: mouseeventfLeftDown}},
		{Type: inputMouse, Mi: mouseInput{Flags: mouseeventfLeftUp}},
	}
	n, _, err := procSendInput.Call(
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		unsafe.Sizeof(events[0]),
	)
	if int(n) != len(events) {
		return fmt.Errorf("SendInput(mouse): %w", err)
	}
	return nil
}

// TypeText sends each UTF-16 code unit as a unicode key press/release.
func (b *WindowsBackend) TypeText(text string) error {
	units := windows.StringToUTF16(text)
	units = units[:len(units)-1] // drop NUL
	if len(units) == 0 {
		return nil
	}
	events := make([]keyEvent, 0, len(units)*2)
	for _, u := range units {
		events = append(events,
			keyEvent{Type: inputKeyboard, Ki: keybdInput{Scan: u, Flags: keyeventfUnicode}},
			keyEvent{Type: inputKeyboard, Ki: keybdInput{Scan: u, Flags: keyeventfUnicode | keyeventfKeyUp}},
		)
	}
	n, _, err := procSendInput.Call(
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		unsafe.Sizeof(events[0]),
	)
	if int(n) != len(events) {
		return fmt.Errorf("SendInput(keyboard): %w", err)
	}
	return nil
}

func activate(hwnd windows.HWND) error {
	procShowWindow.Call(uintptr(hwnd), swMinimize)
	time.Sleep(restoreDelay)
	procShowWindow.Call(uintptr(hwnd), swRestore)
	if ok, _, err := procSetForegroundWindow.Call(uintptr(hwnd)); ok == 0 {
		return fmt.Errorf("SetForegroundWindow: %w", err)
	}
	return nil
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return strings.TrimSpace(windows.UTF16ToString(buf))
}

func windowPID(hwnd windows.HWND) int {
	var pid uint32
	procGetWindowThreadProcessId.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))
	return int(pid)
}

func processName(pid int) string {
	if pid <= 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	name := filepath.Base(windows.UTF16ToString(buf[:size]))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func formatHWND(h windows.HWND) WindowID {
	return WindowID(strconv.FormatUint(uint64(h), 10))
}

func parseHWND(id WindowID) (windows.HWND, error) {
	n, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window handle %q", id)
	}
	return windows.HWND(n), nil
}
