package desktop

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/1broseidon/dtop/internal/platform"
)

// Directory enumerates user-relevant top-level windows and resolves window
// IDs against a fresh enumeration. It never touches focus.
type Directory struct {
	backend platform.Backend
	logger  *slog.Logger

	mu       sync.RWMutex
	denylist []string
}

// NewDirectory creates a directory over backend. Windows whose title or owner
// contains any denylist keyword are hidden.
func NewDirectory(backend platform.Backend, denylist []string, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Directory{backend: backend, logger: logger}
	d.SetDenylist(denylist)
	return d
}

// SetDenylist replaces the keyword filter; safe for concurrent use.
func (d *Directory) SetDenylist(keywords []string) {
	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	d.mu.Lock()
	d.denylist = cleaned
	d.mu.Unlock()
}

// Denylist returns the active keyword filter.
func (d *Directory) Denylist() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.denylist...)
}

// List returns the current windows, at most one entry per ID.
func (d *Directory) List(ctx context.Context) ([]platform.Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := d.backend.Windows()
	if err != nil {
		return nil, err
	}

	deny := d.Denylist()
	seen := make(map[platform.WindowID]struct{}, len(raw))
	out := make([]platform.Window, 0, len(raw))
	for _, w := range raw {
		if w.ID == "" {
			continue
		}
		if _, dup := seen[w.ID]; dup {
			continue
		}
		if strings.TrimSpace(w.Title) == "" && strings.TrimSpace(w.Owner) == "" {
			continue
		}
		if denied(w, deny) {
			continue
		}
		seen[w.ID] = struct{}{}
		out = append(out, w)
	}

	d.logger.Debug("listed windows", "backend", d.backend.Name(), "raw", len(raw), "kept", len(out))
	return out, nil
}

// Resolve re-enumerates and returns the window with id. Results are never
// cached: geometry is whatever the window has right now.
func (d *Directory) Resolve(ctx context.Context, id platform.WindowID) (platform.Window, error) {
	windows, err := d.List(ctx)
	if err != nil {
		return platform.Window{}, err
	}
	for _, w := range windows {
		if w.ID == id {
			return w, nil
		}
	}
	return platform.Window{}, notFound(string(id))
}

func denied(w platform.Window, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(w.Title, k) || strings.Contains(w.Owner, k) {
			return true
		}
	}
	return false
}
