package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/1broseidon/dtop/internal/actionlog"
	"github.com/1broseidon/dtop/internal/automation"
	"github.com/1broseidon/dtop/internal/capture"
	"github.com/1broseidon/dtop/internal/config"
	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/logfile"
	"github.com/1broseidon/dtop/internal/platform"
)

// app holds the desktop stack shared by every command that touches windows.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	level    *slog.LevelVar
	backend  platform.Desktop
	dir      *desktop.Directory
	focus    *desktop.FocusController
	mapper   *desktop.Mapper
	capture  *capture.Engine
	sequence *automation.Sequencer
	audit    *actionlog.Log
}

// newLogger writes text to an interactive stderr and JSON otherwise.
func newLogger(levelName string) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(levelName))
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h), level
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openApp connects to the display and builds the window stack. withAudit
// opens the automation log, which only commands that replay input need.
func openApp(cfg *config.Config, withAudit bool) (*app, error) {
	logger, level := newLogger(cfg.LogLevel)

	backend, err := platform.Open(platform.Options{Display: cfg.Display, XAuthority: cfg.XAuthority})
	if err != nil {
		if errors.Is(err, platform.ErrUnsupported) {
			return nil, fmt.Errorf("no window backend for this platform: %w", err)
		}
		return nil, fmt.Errorf("failed to connect to display: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, level: level, backend: backend}
	a.dir = desktop.NewDirectory(backend, cfg.Denylist, logger)
	a.focus = desktop.NewFocusController(backend, a.dir, desktop.NewGate(), cfg.SettleDelay(), logger)
	a.mapper = desktop.NewMapper(a.dir, cfg.DriftTolerance)
	a.capture = capture.NewEngine(a.focus, a.dir, capture.ScreenGrabber{}, cfg.CaptureSettle(), logger)

	if withAudit {
		logCfg := cfg.GetLoggingConfig()
		audit, err := actionlog.Open(logfile.Config{Path: logCfg.AuditFile})
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to open automation log: %w", err)
		}
		a.audit = audit
		a.sequence = automation.NewSequencer(a.focus, backend, audit, logger)
	}

	logger.Debug("desktop backend ready", "backend", backend.Name())
	return a, nil
}

// applyConfig pushes hot-reloadable settings into the running stack.
func (a *app) applyConfig(cfg *config.Config) {
	a.dir.SetDenylist(cfg.Denylist)
	a.mapper.SetTolerance(cfg.DriftTolerance)
	a.focus.SetSettleDelay(cfg.SettleDelay())
	a.capture.SetSettle(cfg.CaptureSettle())
	a.level.Set(parseLevel(cfg.LogLevel))

	prev := a.cfg
	if prev.Listen != cfg.Listen || prev.StaticDir != cfg.StaticDir ||
		prev.Display != cfg.Display || prev.Logging != cfg.Logging {
		a.logger.Warn("listen, static_dir, display and logging changes take effect after restart")
	}
	a.cfg = cfg
}

func (a *app) Close() error {
	var errs []error
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	errs = append(errs, a.backend.Close())
	return errors.Join(errs...)
}
