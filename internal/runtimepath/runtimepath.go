// Package runtimepath resolves the per-user directories dtop writes to.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "dtop"

// runtimeBase picks XDG_RUNTIME_DIR, then /run/user/<uid>, then the temp dir.
func runtimeBase() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	runUser := fmt.Sprintf("/run/user/%d", os.Getuid())
	if info, err := os.Stat(runUser); err == nil && info.IsDir() {
		return runUser
	}
	return os.TempDir()
}

// Dir returns <runtime base>/dtop, creating it owner-only.
func Dir() (string, error) {
	base := runtimeBase()
	name := appName
	if base == os.TempDir() {
		name = fmt.Sprintf("%s-%d", appName, os.Getuid())
	}
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return dir, nil
}

// LockPath is the file locked by any process that switches focus.
func LockPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".lock"), nil
}

// StateDir holds the audit and request logs: $XDG_STATE_HOME/dtop, else
// ~/.local/state/dtop. It is not created here.
func StateDir() (string, error) {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve state dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", appName), nil
}
