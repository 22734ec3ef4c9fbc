package runtimepath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirUnderXDGRuntimeDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if want := filepath.Join(td, "dtop"); got != want {
		t.Fatalf("Dir() = %q, want %q", got, want)
	}
	info, err := os.Stat(got)
	if err != nil || !info.IsDir() {
		t.Fatalf("Dir() did not create %q: %v", got, err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("mode = %o, want 700", perm)
	}
}

func TestDirFallback(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if !strings.Contains(filepath.Base(got), "dtop") {
		t.Fatalf("Dir() = %q, want a dtop directory", got)
	}
}

func TestLockPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	lock, err := LockPath()
	if err != nil {
		t.Fatalf("LockPath() error: %v", err)
	}
	if lock != filepath.Join(td, "dtop", "dtop.lock") {
		t.Fatalf("LockPath() = %q", lock)
	}
}

func TestStateDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_STATE_HOME", td)

	got, err := StateDir()
	if err != nil {
		t.Fatalf("StateDir() error: %v", err)
	}
	if got != filepath.Join(td, "dtop") {
		t.Fatalf("StateDir() = %q", got)
	}

	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", t.TempDir())
	got, err = StateDir()
	if err != nil {
		t.Fatalf("StateDir() error: %v", err)
	}
	if !strings.HasSuffix(got, filepath.Join(".local", "state", "dtop")) {
		t.Fatalf("StateDir() = %q", got)
	}
}
