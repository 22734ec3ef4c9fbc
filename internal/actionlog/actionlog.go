// Package actionlog writes the audit trail of replayed input actions.
package actionlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/1broseidon/dtop/internal/logfile"
)

// TimeFormat is the timestamp layout of audit lines.
const TimeFormat = "2006-01-02 15:04:05"

// Record is one executed action.
type Record struct {
	Time     time.Time
	RunID    string
	WindowID string
	X        int
	Y        int
	Text     string
}

// Format renders r as a single audit line without the trailing newline.
func Format(r Record) string {
	var sb strings.Builder
	sb.WriteString(r.Time.Format(TimeFormat))
	if r.RunID != "" {
		sb.WriteString(" run=")
		sb.WriteString(r.RunID)
	}
	fmt.Fprintf(&sb, " window_id=%s x=%d y=%d text=%s",
		r.WindowID, r.X, r.Y, strconv.Quote(r.Text))
	return sb.String()
}

// Log is an append-only audit log. Each record is one write followed by
// fsync, so a record is durable once Append returns nil.
type Log struct {
	w   *logfile.Writer
	now func() time.Time
}

// Open opens the audit log at cfg.Path. Sync is always enabled and the
// file is never rotated, so no record is ever dropped.
func Open(cfg logfile.Config) (*Log, error) {
	cfg.Sync = true
	cfg.MaxSizeMB = 0
	w, err := logfile.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &Log{w: w, now: time.Now}, nil
}

// Append writes r. A zero Time is stamped with the current time.
func (l *Log) Append(r Record) error {
	if r.Time.IsZero() {
		r.Time = l.now()
	}
	return l.w.WriteLine(Format(r))
}

// Tail returns the last n audit lines, oldest first.
func (l *Log) Tail(n int) ([]string, error) {
	return l.w.Tail(n)
}

// Path returns the file being written.
func (l *Log) Path() string {
	return l.w.Path()
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.w.Close()
}
