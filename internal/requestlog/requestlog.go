// Package requestlog records HTTP requests as JSON lines plus a plain
// access log.
package requestlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/1broseidon/dtop/internal/logfile"
)

const timeFormat = "2006-01-02 15:04:05"

// Entry is one request record.
type Entry struct {
	Timestamp string  `json:"timestamp"`
	Endpoint  string  `json:"endpoint"`
	Method    string  `json:"method"`
	Status    int     `json:"status"`
	Payload   *string `json:"payload"`
}

// Log writes request entries and access lines.
type Log struct {
	entries *logfile.Writer
	access  *logfile.Writer
	now     func() time.Time
}

// Open opens both files. An empty access path disables the access log.
func Open(entries logfile.Config, access logfile.Config) (*Log, error) {
	ew, err := logfile.Open(entries)
	if err != nil {
		return nil, err
	}
	l := &Log{entries: ew, now: time.Now}
	if access.Path != "" {
		aw, err := logfile.Open(access)
		if err != nil {
			ew.Close()
			return nil, err
		}
		l.access = aw
	}
	return l, nil
}

// Record appends one JSON entry. A missing timestamp is filled in.
func (l *Log) Record(e Entry) error {
	if e.Timestamp == "" {
		e.Timestamp = l.now().Format(timeFormat)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode request entry: %w", err)
	}
	return l.entries.WriteLine(string(data))
}

// Access appends "<timestamp> <METHOD> <path>".
func (l *Log) Access(method, path string) error {
	if l.access == nil {
		return nil
	}
	return l.access.WriteLine(fmt.Sprintf("%s %s %s", l.now().Format(timeFormat), method, path))
}

// Tail returns the last n entries, oldest first. Lines that are not valid
// JSON are returned as {"raw": line}.
func (l *Log) Tail(n int) ([]json.RawMessage, error) {
	lines, err := l.entries.Tail(n)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(lines))
	for _, line := range lines {
		if json.Valid([]byte(line)) {
			out = append(out, json.RawMessage(line))
			continue
		}
		raw, err := json.Marshal(map[string]string{"raw": line})
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// AccessTail returns the last n access lines.
func (l *Log) AccessTail(n int) ([]string, error) {
	if l.access == nil {
		return []string{}, nil
	}
	lines, err := l.access.Tail(n)
	if lines == nil {
		lines = []string{}
	}
	return lines, err
}

// Close closes both files.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	err := l.entries.Close()
	if l.access != nil {
		if aerr := l.access.Close(); err == nil {
			err = aerr
		}
	}
	return err
}
