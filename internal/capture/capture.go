// Package capture grabs cropped PNG screenshots of individual windows.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
	"github.com/kbinani/screenshot"
)

// DefaultSettle is how long to wait after activating a window before
// grabbing pixels.
const DefaultSettle = 300 * time.Millisecond

// Grabber reads a screen rectangle.
type Grabber interface {
	Grab(r platform.Rect) (*image.RGBA, error)
}

// ScreenGrabber reads pixels from the attached displays.
type ScreenGrabber struct{}

// Grab implements Grabber.
func (ScreenGrabber) Grab(r platform.Rect) (*image.RGBA, error) {
	return screenshot.CaptureRect(image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height))
}

// Shot is a captured window image.
type Shot struct {
	PNG []byte
	// Bounds is the screen rectangle actually captured.
	Bounds platform.Rect
	// RestoreErr is set when focus could not be returned afterwards.
	RestoreErr error
}

// Engine captures windows under the focus gate.
type Engine struct {
	focus   *desktop.FocusController
	dir     *desktop.Directory
	grabber Grabber
	logger  *slog.Logger

	settle atomic.Int64
}

// NewEngine creates a capture engine. A nil grabber uses ScreenGrabber.
func NewEngine(focus *desktop.FocusController, dir *desktop.Directory, grabber Grabber, settle time.Duration, logger *slog.Logger) *Engine {
	if grabber == nil {
		grabber = ScreenGrabber{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{focus: focus, dir: dir, grabber: grabber, logger: logger}
	e.SetSettle(settle)
	return e
}

// SetSettle updates the post-activation delay; non-positive restores the
// default.
func (e *Engine) SetSettle(d time.Duration) {
	if d <= 0 {
		d = DefaultSettle
	}
	e.settle.Store(int64(d))
}

// Screenshot activates window id, captures exactly its current bounds, and
// restores the previous focus.
func (e *Engine) Screenshot(ctx context.Context, id platform.WindowID) (Shot, error) {
	var shot Shot
	opts := desktop.ScopeOptions{Settle: time.Duration(e.settle.Load())}

	out, err := e.focus.Scoped(ctx, id, opts, func(ctx context.Context, _ platform.Window) error {
		// Bounds can change on activation (un-minimize, raise onto another
		// monitor), so resolve again.
		live, err := e.dir.Resolve(ctx, id)
		if err != nil {
			return err
		}
		b := live.Bounds
		if b.Width <= 0 || b.Height <= 0 {
			return fmt.Errorf("%w: window %s has empty bounds %dx%d", desktop.ErrCapture, id, b.Width, b.Height)
		}

		img, err := e.grabber.Grab(b)
		if err != nil {
			return fmt.Errorf("%w: %v", desktop.ErrCapture, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("%w: encode png: %v", desktop.ErrCapture, err)
		}
		shot.PNG = buf.Bytes()
		shot.Bounds = b
		return nil
	})
	shot.RestoreErr = out.RestoreErr
	if err != nil {
		return Shot{RestoreErr: out.RestoreErr}, err
	}

	e.logger.Info("captured window",
		"window_id", id,
		"x", shot.Bounds.X,
		"y", shot.Bounds.Y,
		"width", shot.Bounds.Width,
		"height", shot.Bounds.Height,
		"bytes", len(shot.PNG))
	return shot, nil
}
