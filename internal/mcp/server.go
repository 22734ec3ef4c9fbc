// Package mcp serves the desktop operations as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dtop/internal/automation"
	"github.com/1broseidon/dtop/internal/capture"
	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
)

const (
	ServerName    = "dtop"
	ServerVersion = "0.1.0"
)

// Lister enumerates windows.
type Lister interface {
	List(ctx context.Context) ([]platform.Window, error)
}

// Capturer screenshots a window.
type Capturer interface {
	Screenshot(ctx context.Context, id platform.WindowID) (capture.Shot, error)
}

// PointMapper maps screenshot coordinates onto the live window.
type PointMapper interface {
	Map(ctx context.Context, id platform.WindowID, xRel, yRel float64, orig desktop.Size, tolerance float64) (desktop.Point, error)
	Tolerance() float64
}

// Automator replays action batches.
type Automator interface {
	Run(ctx context.Context, id platform.WindowID, actions []automation.Action) (automation.Report, error)
}

// Deps are the operations exposed as tools.
type Deps struct {
	Windows    Lister
	Capture    Capturer
	Mapper     PointMapper
	Automation Automator
	Logger     *slog.Logger
}

// Server is the MCP server for desktop automation.
type Server struct {
	mcpServer *mcpsdk.Server
	deps      Deps
	logger    *slog.Logger
}

// NewServer registers the tools.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List visible top-level windows with their ids, titles and screen bounds. Ids are stable for the lifetime of a window and are what the other tools take.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "screenshot_window",
		Description: "Capture a PNG of one window. The window is briefly brought to the front and the previously focused window is restored afterwards. The text part reports the captured screen bounds.",
	}, s.handleScreenshot)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "map_point",
		Description: "Convert a point on a window screenshot into screen coordinates using the window's current position and size. Fails if the window was resized by more than the tolerance since the screenshot.",
	}, s.handleMapPoint)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "automate",
		Description: "Focus a window and replay clicks at screen coordinates, each optionally followed by typed text. Actions run in order and stop at the first failure. Focus is returned to the previous window afterwards.",
	}, s.handleAutomate)
}
