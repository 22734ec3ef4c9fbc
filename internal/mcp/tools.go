package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
)

func (s *Server) handleListWindows(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.deps.Windows.List(ctx)
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("failed to list windows: %w", err)
	}
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(windows))}
	for _, w := range windows {
		out.Windows = append(out.Windows, WindowInfo{
			ID:     string(w.ID),
			Title:  w.DisplayTitle(),
			Bounds: w.Bounds,
		})
	}
	return nil, out, nil
}

func (s *Server) handleScreenshot(ctx context.Context, _ *mcpsdk.CallToolRequest, args ScreenshotInput) (*mcpsdk.CallToolResult, any, error) {
	if args.WindowID == "" {
		return nil, nil, errors.New("window_id is required")
	}
	shot, err := s.deps.Capture.Screenshot(ctx, platform.WindowID(args.WindowID))
	if err != nil {
		return nil, nil, fmt.Errorf("window not found or screenshot failed: %w", err)
	}

	b := shot.Bounds
	summary := fmt.Sprintf("window %s captured at x=%d y=%d width=%d height=%d", args.WindowID, b.X, b.Y, b.Width, b.Height)
	if shot.RestoreErr != nil {
		summary += fmt.Sprintf("\nwarning: %v", shot.RestoreErr)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.ImageContent{
				Data:     shot.PNG,
				MIMEType: "image/png",
			},
			&mcpsdk.TextContent{Text: summary},
		},
	}, nil, nil
}

func (s *Server) handleMapPoint(ctx context.Context, _ *mcpsdk.CallToolRequest, args MapPointInput) (*mcpsdk.CallToolResult, MapPointOutput, error) {
	if args.WindowID == "" {
		return nil, MapPointOutput{}, errors.New("window_id is required")
	}
	tol := args.Tolerance
	if tol <= 0 {
		tol = s.deps.Mapper.Tolerance()
	}

	pt, err := s.deps.Mapper.Map(ctx, platform.WindowID(args.WindowID), args.X, args.Y,
		desktop.Size{Width: args.Width, Height: args.Height}, tol)
	if err != nil {
		var drift *desktop.DriftError
		if errors.As(err, &drift) {
			return nil, MapPointOutput{}, fmt.Errorf("%w; take a new screenshot", err)
		}
		return nil, MapPointOutput{}, err
	}
	return nil, MapPointOutput{X: pt.X, Y: pt.Y}, nil
}

func (s *Server) handleAutomate(ctx context.Context, _ *mcpsdk.CallToolRequest, args AutomateInput) (*mcpsdk.CallToolResult, AutomateOutput, error) {
	if args.WindowID == "" {
		return nil, AutomateOutput{}, errors.New("window_id is required")
	}

	report, err := s.deps.Automation.Run(ctx, platform.WindowID(args.WindowID), args.Actions)
	if err != nil {
		var actionErr *desktop.ActionError
		if errors.As(err, &actionErr) {
			return nil, AutomateOutput{}, fmt.Errorf("automation failed after %d of %d actions: %w", report.Executed, len(args.Actions), err)
		}
		return nil, AutomateOutput{}, fmt.Errorf("automation failed: %w", err)
	}

	out := AutomateOutput{RunID: report.RunID, Executed: report.Executed}
	if report.RestoreErr != nil {
		out.Warning = report.RestoreErr.Error()
	}
	return nil, out, nil
}
