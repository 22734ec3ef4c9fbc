package mcp

import (
	"github.com/1broseidon/dtop/internal/automation"
	"github.com/1broseidon/dtop/internal/platform"
)

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowInfo describes one window.
type WindowInfo struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Bounds platform.Rect `json:"bounds"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// ScreenshotInput is the input for the screenshot_window tool.
type ScreenshotInput struct {
	WindowID string `json:"window_id" jsonschema:"Window id as returned by list_windows"`
}

// MapPointInput is the input for the map_point tool.
type MapPointInput struct {
	WindowID  string  `json:"window_id" jsonschema:"Window id the screenshot was taken of"`
	X         float64 `json:"x" jsonschema:"X coordinate on the screenshot"`
	Y         float64 `json:"y" jsonschema:"Y coordinate on the screenshot"`
	Width     int     `json:"width" jsonschema:"Screenshot width in pixels"`
	Height    int     `json:"height" jsonschema:"Screenshot height in pixels"`
	Tolerance float64 `json:"tolerance,omitempty" jsonschema:"Maximum relative size drift (default: server setting, usually 0.2)"`
}

// MapPointOutput is the output for the map_point tool.
type MapPointOutput struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// AutomateInput is the input for the automate tool.
type AutomateInput struct {
	WindowID string              `json:"window_id" jsonschema:"Window to focus while replaying actions"`
	Actions  []automation.Action `json:"actions" jsonschema:"Clicks in screen coordinates, each optionally followed by typed text"`
}

// AutomateOutput is the output for the automate tool.
type AutomateOutput struct {
	RunID    string `json:"run_id"`
	Executed int    `json:"executed"`
	Warning  string `json:"warning,omitempty"`
}
