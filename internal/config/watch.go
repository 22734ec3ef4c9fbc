package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce absorbs the burst of events editors emit per save.
const DefaultReloadDebounce = 100 * time.Millisecond

// Watcher reloads the config when the file or any included file changes.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(*LoadResult)
	logger   *slog.Logger

	fs *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]struct{}
	timer *time.Timer
}

// Watch starts watching the directories that hold path and the files it
// loaded. onReload receives every successfully validated reload; invalid
// edits are logged and the previous config stays in effect.
func Watch(ctx context.Context, res *LoadResult, onReload func(*LoadResult), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		path:     res.Path,
		debounce: DefaultReloadDebounce,
		onReload: onReload,
		logger:   logger,
		fs:       fsw,
	}
	if err := w.track(res); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop(ctx)
	return w, nil
}

// track (re)registers the directories of every loaded file. Directories are
// watched rather than files so atomic-rename saves keep being observed.
func (w *Watcher) track(res *LoadResult) error {
	files := make(map[string]struct{}, len(res.Files)+1)
	dirs := map[string]struct{}{}

	mainPath, err := filepath.Abs(res.Path)
	if err != nil {
		return err
	}
	files[mainPath] = struct{}{}
	dirs[filepath.Dir(mainPath)] = struct{}{}
	for _, f := range res.Files {
		files[f] = struct{}{}
		dirs[filepath.Dir(f)] = struct{}{}
	}

	for dir := range dirs {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	w.mu.Lock()
	w.files = files
	w.mu.Unlock()
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.schedule()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[name]
	return ok
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	res, err := LoadFromPath(w.path)
	if err != nil {
		w.logger.Warn("config reload failed; keeping previous config", "path", w.path, "error", err)
		return
	}
	if err := w.track(res); err != nil {
		w.logger.Warn("config watcher could not track includes", "error", err)
	}
	w.logger.Info("config reloaded", "path", w.path, "files", len(res.Files))
	if w.onReload != nil {
		w.onReload(res)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}
