package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/dtop/internal/automation"
	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
	"github.com/1broseidon/dtop/internal/tui"
)

// commandContext is cancelled on SIGINT/SIGTERM. Focus-changing commands
// still finish their restore after cancellation.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dtop windows [--json] [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List windows with their ids and screen bounds.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	a, code := openFromFlag(*path, false)
	if a == nil {
		return code
	}
	defer a.Close()

	ctx, cancel := commandContext()
	defer cancel()

	windows, err := a.dir.List(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		type windowJSON struct {
			ID        platform.WindowID `json:"id"`
			Title     string            `json:"title"`
			Owner     string            `json:"owner,omitempty"`
			PID       int               `json:"pid,omitempty"`
			Minimized bool              `json:"minimized,omitempty"`
			Bounds    platform.Rect     `json:"bounds"`
		}
		out := make([]windowJSON, 0, len(windows))
		for _, w := range windows {
			out = append(out, windowJSON{
				ID:        w.ID,
				Title:     w.DisplayTitle(),
				Owner:     w.Owner,
				PID:       w.PID,
				Minimized: w.Minimized,
				Bounds:    w.Bounds,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	writeWindowTable(os.Stdout, windows)
	return 0
}

func writeWindowTable(w io.Writer, windows []platform.Window) {
	if len(windows) == 0 {
		fmt.Fprintln(w, "No windows")
		return
	}
	idWidth := len("ID")
	for _, win := range windows {
		if n := len(win.ID); n > idWidth {
			idWidth = n
		}
	}
	fmt.Fprintf(w, "%-*s  %-22s  %s\n", idWidth, "ID", "BOUNDS", "TITLE")
	for _, win := range windows {
		b := win.Bounds
		bounds := fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.X, b.Y)
		title := win.DisplayTitle()
		if win.Minimized {
			title += " (minimized)"
		}
		fmt.Fprintf(w, "%-*s  %-22s  %s\n", idWidth, win.ID, bounds, title)
	}
}

func runPick(args []string) int {
	fs := flag.NewFlagSet("pick", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path")
	jsonOut := fs.Bool("json", false, "Print the chosen window as JSON instead of its id")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dtop pick [--json] [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Choose a window interactively and print its id, e.g.")
		fmt.Fprintln(os.Stderr, "  dtop screenshot --id \"$(dtop pick)\"")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	a, code := openFromFlag(*path, false)
	if a == nil {
		return code
	}
	defer a.Close()

	ctx, cancel := commandContext()
	defer cancel()

	w, err := tui.Pick(ctx, a.dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, tui.ErrCancelled) {
			return 130
		}
		return 1
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(map[string]any{"id": w.ID, "title": w.DisplayTitle(), "bounds": w.Bounds})
		return 0
	}
	fmt.Println(w.ID)
	return 0
}

func runScreenshot(args []string) int {
	fs := flag.NewFlagSet("screenshot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path")
	id := fs.String("id", "", "Window id (from 'dtop windows')")
	out := fs.String("o", "", "Output file (default: window-<id>.png)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dtop screenshot --id ID [-o FILE]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Capture one window to a PNG. Focus moves to the window briefly and")
		fmt.Fprintln(os.Stderr, "is returned afterwards.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "screenshot requires --id")
		return 2
	}
	file := *out
	if file == "" {
		file = fmt.Sprintf("window-%s.png", *id)
	}

	release, err := acquireLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v; use the running server's API instead\n", err)
		return 1
	}
	defer release()

	a, code := openFromFlag(*path, false)
	if a == nil {
		return code
	}
	defer a.Close()

	ctx, cancel := commandContext()
	defer cancel()

	shot, err := a.capture.Screenshot(ctx, platform.WindowID(*id))
	if shot.RestoreErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", shot.RestoreErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, desktop.ErrNotFound) {
			return 3
		}
		return 1
	}
	if err := os.WriteFile(file, shot.PNG, 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	b := shot.Bounds
	fmt.Printf("%s (%dx%d at %d,%d)\n", file, b.Width, b.Height, b.X, b.Y)
	return 0
}

func runMap(args []string) int {
	fs := flag.NewFlagSet("map", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path")
	id := fs.String("id", "", "Window id")
	x := fs.Float64("x", 0, "X on the screenshot")
	y := fs.Float64("y", 0, "Y on the screenshot")
	width := fs.Int("width", 0, "Screenshot width")
	height := fs.Int("height", 0, "Screenshot height")
	tol := fs.Float64("tolerance", 0, "Allowed relative size drift (default: config drift_tolerance)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dtop map --id ID --x X --y Y --width W --height H [--tolerance T]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Map a screenshot point to current screen coordinates. Focus is not touched.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "map requires --id")
		return 2
	}

	a, code := openFromFlag(*path, false)
	if a == nil {
		return code
	}
	defer a.Close()

	ctx, cancel := commandContext()
	defer cancel()

	t := *tol
	if t <= 0 {
		t = a.mapper.Tolerance()
	}
	pt, err := a.mapper.Map(ctx, platform.WindowID(*id), *x, *y, desktop.Size{Width: *width, Height: *height}, t)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch {
		case errors.Is(err, desktop.ErrNotFound):
			return 3
		case errors.Is(err, desktop.ErrDriftExceeded):
			return 4
		case errors.Is(err, desktop.ErrInvalidArgument):
			return 2
		}
		return 1
	}
	fmt.Printf("%d %d\n", pt.X, pt.Y)
	return 0
}

func runAutomate(args []string) int {
	fs := flag.NewFlagSet("automate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path")
	id := fs.String("id", "", "Window id")
	file := fs.String("file", "-", "JSON array of {x,y,text?} actions; - reads stdin")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dtop automate --id ID [--file actions.json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Focus a window, replay clicks and typing, then restore focus.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Example:")
		fmt.Fprintln(os.Stderr, `  echo '[{"x":640,"y":410,"text":"hello"}]' | dtop automate --id 60817415`)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "automate requires --id")
		return 2
	}

	actions, err := readActions(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	release, err := acquireLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v; use the running server's API instead\n", err)
		return 1
	}
	defer release()

	a, code := openFromFlag(*path, true)
	if a == nil {
		return code
	}
	defer a.Close()

	ctx, cancel := commandContext()
	defer cancel()

	report, err := a.sequence.Run(ctx, platform.WindowID(*id), actions)
	if report.RestoreErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", report.RestoreErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "automation failed after %d of %d actions: %v\n", report.Executed, len(actions), err)
		return 1
	}
	fmt.Printf("run %s: %d actions executed\n", report.RunID, report.Executed)
	return 0
}

func readActions(file string) ([]automation.Action, error) {
	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var actions []automation.Action
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&actions); err != nil {
		return nil, fmt.Errorf("invalid actions: %w", err)
	}
	return actions, nil
}

// openFromFlag loads config and opens the desktop stack. On failure a is nil
// and code is the exit status.
func openFromFlag(path string, withAudit bool) (a *app, code int) {
	res, err := loadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, 1
	}
	a, err = openApp(res.Config, withAudit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, 1
	}
	return a, 0
}
