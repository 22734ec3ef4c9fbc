package logfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteLineAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.log")
	w, err := Open(Config{Path: path, MaxSizeMB: 1, MaxFiles: 2, Sync: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()

	for _, l := range []string{"one", "two\n", "three"} {
		if err := w.WriteLine(l); err != nil {
			t.Fatalf("WriteLine(%q) error = %v", l, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "one\ntwo\nthree\n" {
		t.Fatalf("file contents = %q", data)
	}

	got, err := w.Tail(2)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if strings.Join(got, ",") != "two,three" {
		t.Fatalf("Tail(2) = %v, want [two three]", got)
	}

	all, _ := w.Tail(10)
	if len(all) != 3 {
		t.Fatalf("Tail(10) = %v, want 3 lines", all)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("log file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestTailMissingFile(t *testing.T) {
	got, err := TailFile(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("TailFile(missing) = %v, %v; want empty, nil", got, err)
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rot.log")
	w, err := Open(Config{Path: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()

	// Force the size threshold without writing a megabyte.
	w.currentSize = 1024 * 1024
	if err := w.WriteLine("after-rotate"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected %s.1 after rotation: %v", path, err)
	}

	w.currentSize = 1024 * 1024
	if err := w.WriteLine("second"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}
	if _, err := os.Stat(path + ".2"); err != nil {
		t.Fatalf("expected %s.2 after second rotation: %v", path, err)
	}

	got, _ := w.Tail(5)
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("Tail() after rotation = %v", got)
	}
}

func TestRotationFailureKeepsWriterUsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	w, err := Open(Config{Path: path, MaxSizeMB: 1, MaxFiles: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()

	if err := w.WriteLine("before"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}

	// A non-empty directory where the first generation goes cannot be
	// removed or renamed over.
	blocker := path + ".1"
	if err := os.MkdirAll(filepath.Join(blocker, "keep"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	w.currentSize = 1024 * 1024
	if err := w.WriteLine("blocked"); err == nil {
		t.Fatal("expected rotation error")
	}

	if err := os.RemoveAll(blocker); err != nil {
		t.Fatalf("remove blocker: %v", err)
	}
	if err := w.WriteLine("after"); err != nil {
		t.Fatalf("WriteLine() after failed rotation error = %v", err)
	}

	got, _ := w.Tail(5)
	if len(got) != 2 || got[0] != "before" || got[1] != "after" {
		t.Fatalf("Tail() = %v, want [before after]", got)
	}
}

func TestWriteAfterClose(t *testing.T) {
	w, err := Open(Config{Path: filepath.Join(t.TempDir(), "c.log")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.WriteLine("x"); err == nil {
		t.Fatal("expected error writing to closed log")
	}
}
