package mcp

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dtop/internal/actionlog"
	"github.com/1broseidon/dtop/internal/automation"
	"github.com/1broseidon/dtop/internal/capture"
	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
	"github.com/1broseidon/dtop/internal/platform/platformtest"
)

type blankGrabber struct{}

func (blankGrabber) Grab(r platform.Rect) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, r.Width, r.Height)), nil
}

type memAudit struct {
	mu      sync.Mutex
	records []actionlog.Record
}

func (m *memAudit) Append(r actionlog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func newTestServer(t *testing.T) (*Server, *platformtest.Fake, *memAudit) {
	t.Helper()
	fake := platformtest.New(
		platformtest.Window("1", "Terminal", "bash", 0, 0, 800, 600),
		platformtest.Window("2", "Firefox", "Docs", 100, 100, 800, 600),
	)
	dir := desktop.NewDirectory(fake, nil, nil)
	focus := desktop.NewFocusController(fake, dir, desktop.NewGate(), 0, nil)
	focus.SetSleep(func(time.Duration) {})
	audit := &memAudit{}

	s := NewServer(Deps{
		Windows:    dir,
		Capture:    capture.NewEngine(focus, dir, blankGrabber{}, 0, nil),
		Mapper:     desktop.NewMapper(dir, 0.2),
		Automation: automation.NewSequencer(focus, fake, audit, nil),
	})
	return s, fake, audit
}

func TestHandleListWindows(t *testing.T) {
	s, _, _ := newTestServer(t)

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows() error = %v", err)
	}
	if len(out.Windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(out.Windows))
	}
	if out.Windows[1].ID != "2" || out.Windows[1].Title != "Firefox Docs" {
		t.Errorf("window = %+v", out.Windows[1])
	}
}

func TestHandleScreenshot(t *testing.T) {
	s, fake, _ := newTestServer(t)

	res, _, err := s.handleScreenshot(context.Background(), nil, ScreenshotInput{WindowID: "2"})
	if err != nil {
		t.Fatalf("handleScreenshot() error = %v", err)
	}
	if len(res.Content) != 2 {
		t.Fatalf("got %d content parts, want 2", len(res.Content))
	}
	img, ok := res.Content[0].(*mcpsdk.ImageContent)
	if !ok {
		t.Fatalf("content[0] is %T, want *ImageContent", res.Content[0])
	}
	if img.MIMEType != "image/png" || len(img.Data) == 0 {
		t.Errorf("image content = %q, %d bytes", img.MIMEType, len(img.Data))
	}
	text, ok := res.Content[1].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("content[1] is %T, want *TextContent", res.Content[1])
	}
	if !strings.Contains(text.Text, "x=100 y=100 width=800 height=600") {
		t.Errorf("summary = %q", text.Text)
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Errorf("focus after screenshot = %q, want 1", got)
	}
}

func TestHandleScreenshotErrors(t *testing.T) {
	s, _, _ := newTestServer(t)

	if _, _, err := s.handleScreenshot(context.Background(), nil, ScreenshotInput{}); err == nil {
		t.Error("empty window_id: expected error")
	}
	_, _, err := s.handleScreenshot(context.Background(), nil, ScreenshotInput{WindowID: "404"})
	if !errors.Is(err, desktop.ErrNotFound) {
		t.Errorf("unknown window error = %v, want ErrNotFound", err)
	}
}

func TestHandleMapPoint(t *testing.T) {
	s, fake, _ := newTestServer(t)

	_, out, err := s.handleMapPoint(context.Background(), nil, MapPointInput{
		WindowID: "2", X: 400, Y: 300, Width: 800, Height: 600,
	})
	if err != nil {
		t.Fatalf("handleMapPoint() error = %v", err)
	}
	if out.X != 500 || out.Y != 400 {
		t.Errorf("point = %+v, want {500 400}", out)
	}

	fake.SetBounds("2", platform.Rect{X: 100, Y: 100, Width: 1200, Height: 600})
	_, _, err = s.handleMapPoint(context.Background(), nil, MapPointInput{
		WindowID: "2", X: 400, Y: 300, Width: 800, Height: 600,
	})
	if !errors.Is(err, desktop.ErrDriftExceeded) {
		t.Fatalf("drift error = %v, want ErrDriftExceeded", err)
	}
	if !strings.Contains(err.Error(), "new screenshot") {
		t.Errorf("drift error %q should suggest a new screenshot", err)
	}

	_, out, err = s.handleMapPoint(context.Background(), nil, MapPointInput{
		WindowID: "2", X: 400, Y: 300, Width: 800, Height: 600, Tolerance: 0.5,
	})
	if err != nil {
		t.Fatalf("explicit tolerance error = %v", err)
	}
	if out.X != 700 {
		t.Errorf("x = %d, want 700", out.X)
	}
}

func TestHandleAutomate(t *testing.T) {
	s, fake, audit := newTestServer(t)

	_, out, err := s.handleAutomate(context.Background(), nil, AutomateInput{
		WindowID: "2",
		Actions: []automation.Action{
			{X: 120, Y: 130, Text: "hello"},
			{X: 140, Y: 150},
		},
	})
	if err != nil {
		t.Fatalf("handleAutomate() error = %v", err)
	}
	if out.Executed != 2 || out.RunID == "" {
		t.Errorf("output = %+v", out)
	}
	if len(audit.records) != 2 {
		t.Errorf("audit records = %d, want 2", len(audit.records))
	}
	if got := fake.Count("click"); got != 2 {
		t.Errorf("clicks = %d, want 2", got)
	}
}

func TestHandleAutomatePartialFailure(t *testing.T) {
	s, fake, audit := newTestServer(t)
	fake.FailClickAt = 1

	_, _, err := s.handleAutomate(context.Background(), nil, AutomateInput{
		WindowID: "2",
		Actions:  []automation.Action{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
	})
	if !errors.Is(err, desktop.ErrActionReplay) {
		t.Fatalf("error = %v, want ErrActionReplay", err)
	}
	if !strings.Contains(err.Error(), "after 1 of 3 actions") {
		t.Errorf("error %q should report progress", err)
	}
	if len(audit.records) != 1 {
		t.Errorf("audit records = %d, want 1", len(audit.records))
	}
	if got := fake.Active().WindowID; got != "1" {
		t.Errorf("focus after failure = %q, want 1", got)
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	if _, err := s.mcpServer.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_windows", "screenshot_window", "map_point", "automate"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "map_point",
		Arguments: map[string]any{"window_id": "404", "x": 1, "y": 1, "width": 10, "height": 10},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Error("map_point on unknown window should be a tool error")
	}
}
