// Package logfile implements append-only, size-rotated line logs.
package logfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config describes one rotated log file.
type Config struct {
	Path string
	// MaxSizeMB of zero disables rotation.
	MaxSizeMB int
	MaxFiles  int
	// Sync fsyncs after every line.
	Sync bool
}

// Writer appends whole lines to a file and rotates it by size:
// file -> file.1 -> file.2 ... up to MaxFiles rotated copies.
type Writer struct {
	mu          sync.Mutex
	file        *os.File
	closed      bool
	config      Config
	currentSize int64
}

// Open creates the parent directory and opens path for appending.
func Open(cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("log file path is empty")
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	w := &Writer{config: cfg}
	if err := w.reopen(); err != nil {
		return nil, err
	}
	return w, nil
}

// reopen opens the base path for appending and picks up its size.
func (w *Writer) reopen() error {
	f, err := os.OpenFile(w.config.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", w.config.Path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file = f
	w.currentSize = stat.Size()
	return nil
}

// Path returns the active file path.
func (w *Writer) Path() string {
	return w.config.Path
}

// WriteLine appends line plus a newline in a single write.
func (w *Writer) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("log file is closed")
	}
	if w.file == nil {
		if err := w.reopen(); err != nil {
			return err
		}
	}

	maxBytes := int64(w.config.MaxSizeMB) * 1024 * 1024
	if maxBytes > 0 && w.currentSize >= maxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.file.WriteString(strings.TrimRight(line, "\n") + "\n")
	w.currentSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	if w.config.Sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	return nil
}

// Tail returns up to n of the most recent lines of the active file, oldest
// first. A missing file yields no lines.
func (w *Writer) Tail(n int) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return TailFile(w.config.Path, n)
}

// TailFile returns up to n trailing non-empty lines of path.
func TailFile(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return tail(f, n)
}

func tail(r io.Reader, n int) ([]string, error) {
	ring := make([]string, 0, n)
	start := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		ring[start] = line
		start = (start + 1) % n
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(ring))
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return out, nil
}

// Close closes the file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate shifts file -> file.1 -> file.2 and drops the oldest. A failed
// rename leaves the writer appending to the unrotated file so the next write
// retries.
func (w *Writer) rotate() error {
	basePath := w.config.Path
	maxFiles := w.config.MaxFiles
	if maxFiles < 1 {
		maxFiles = 1
	}
	for i := maxFiles; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", basePath, i)
		if i == maxFiles {
			os.Remove(oldPath)
		} else {
			os.Rename(oldPath, fmt.Sprintf("%s.%d", basePath, i+1))
		}
	}

	// Closed before the rename: Windows refuses to rename open files.
	w.file.Close()
	w.file = nil
	renameErr := os.Rename(basePath, basePath+".1")

	if err := w.reopen(); err != nil {
		return err
	}
	if renameErr != nil && !os.IsNotExist(renameErr) {
		return fmt.Errorf("failed to rotate log file: %w", renameErr)
	}
	return nil
}
