package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
	"github.com/1broseidon/dtop/internal/platform/platformtest"
)

type fakeGrabber struct {
	rects []platform.Rect
	err   error
}

func (g *fakeGrabber) Grab(r platform.Rect) (*image.RGBA, error) {
	g.rects = append(g.rects, r)
	if g.err != nil {
		return nil, g.err
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img, nil
}

func newTestEngine(fake *platformtest.Fake, g Grabber) *Engine {
	dir := desktop.NewDirectory(fake, nil, nil)
	focus := desktop.NewFocusController(fake, dir, desktop.NewGate(), 0, nil)
	focus.SetSleep(func(time.Duration) {})
	return NewEngine(focus, dir, g, 0, nil)
}

func TestScreenshotCapturesLiveBounds(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 10, 20, 300, 200),
	)
	// Activation moves the window, as a window manager placing a restored
	// window would.
	fake.OnActivate = func(w platform.Window) {
		if w.ID == "2" {
			fake.SetBounds("2", platform.Rect{X: 40, Y: 50, Width: 320, Height: 240})
		}
	}
	g := &fakeGrabber{}
	e := newTestEngine(fake, g)

	shot, err := e.Screenshot(context.Background(), "2")
	if err != nil {
		t.Fatalf("Screenshot() error = %v", err)
	}

	want := platform.Rect{X: 40, Y: 50, Width: 320, Height: 240}
	if shot.Bounds != want {
		t.Fatalf("Bounds = %+v, want %+v", shot.Bounds, want)
	}
	if len(g.rects) != 1 || g.rects[0] != want {
		t.Fatalf("grabbed %+v, want [%+v]", g.rects, want)
	}

	img, err := png.Decode(bytes.NewReader(shot.PNG))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("image size = %dx%d, want 320x240", b.Dx(), b.Dy())
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Fatalf("focus after capture = %s, want 1", got)
	}
	if shot.RestoreErr != nil {
		t.Fatalf("RestoreErr = %v", shot.RestoreErr)
	}
}

func TestScreenshotUnknownWindow(t *testing.T) {
	fake := platformtest.New(platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600))
	g := &fakeGrabber{}
	e := newTestEngine(fake, g)

	_, err := e.Screenshot(context.Background(), "404")
	if !errors.Is(err, desktop.ErrNotFound) {
		t.Fatalf("Screenshot() error = %v, want ErrNotFound", err)
	}
	if len(g.rects) != 0 || len(fake.Events()) != 0 {
		t.Fatalf("unexpected side effects: grabs=%v events=%v", g.rects, fake.Events())
	}
}

func TestScreenshotGrabFailure(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 300, 200),
	)
	e := newTestEngine(fake, &fakeGrabber{err: errors.New("no display")})

	_, err := e.Screenshot(context.Background(), "2")
	if !errors.Is(err, desktop.ErrCapture) {
		t.Fatalf("Screenshot() error = %v, want ErrCapture", err)
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Fatalf("focus after failed capture = %s, want 1", got)
	}
}

func TestScreenshotEmptyBounds(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 0, 200),
	)
	g := &fakeGrabber{}
	e := newTestEngine(fake, g)

	if _, err := e.Screenshot(context.Background(), "2"); !errors.Is(err, desktop.ErrCapture) {
		t.Fatalf("Screenshot() error = %v, want ErrCapture", err)
	}
	if len(g.rects) != 0 {
		t.Fatalf("grabber called for empty window: %v", g.rects)
	}
}

func TestScreenshotReportsRestoreFailure(t *testing.T) {
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Editor", "main.go", 0, 0, 300, 200),
	)
	fake.ActivateTargetErr = errors.New("gone")
	e := newTestEngine(fake, &fakeGrabber{})

	shot, err := e.Screenshot(context.Background(), "2")
	if err != nil {
		t.Fatalf("Screenshot() error = %v, restore failures must not fail capture", err)
	}
	if !errors.Is(shot.RestoreErr, desktop.ErrFocusRestore) {
		t.Fatalf("RestoreErr = %v, want ErrFocusRestore", shot.RestoreErr)
	}
	if len(shot.PNG) == 0 {
		t.Fatal("expected PNG data")
	}
}
