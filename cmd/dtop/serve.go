package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/dtop/internal/config"
	"github.com/1broseidon/dtop/internal/httpapi"
	"github.com/1broseidon/dtop/internal/logfile"
	"github.com/1broseidon/dtop/internal/requestlog"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path (default: ~/.config/dtop/config.yaml)")
	listen := fs.String("listen", "", "Listen address (overrides config)")
	noWatch := fs.Bool("no-watch", false, "Do not reload the config file on change")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dtop serve [--config PATH] [--listen ADDR] [--no-watch]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start the HTTP API in the foreground.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	addr := cfg.Listen
	if *listen != "" {
		addr = *listen
	}

	release, err := acquireLock()
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer release()

	a, err := openApp(cfg, true)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	logCfg := cfg.GetLoggingConfig()
	reqs, err := requestlog.Open(
		logfile.Config{Path: logCfg.RequestFile, MaxSizeMB: logCfg.MaxSizeMB, MaxFiles: logCfg.MaxFiles},
		logfile.Config{Path: logCfg.AccessFile, MaxSizeMB: logCfg.MaxSizeMB, MaxFiles: logCfg.MaxFiles},
	)
	if err != nil {
		log.Fatalf("Failed to open request log: %v", err)
	}
	defer reqs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*noWatch {
		w, err := config.Watch(ctx, res, func(next *config.LoadResult) {
			a.applyConfig(next.Config)
		}, a.logger)
		if err != nil {
			a.logger.Warn("config watch disabled", "error", err)
		} else {
			defer w.Close()
		}
	}

	srv := httpapi.New(httpapi.Options{
		Windows:    a.dir,
		Capture:    a.capture,
		Mapper:     a.mapper,
		Automation: a.sequence,
		Requests:   reqs,
		StaticDir:  cfg.StaticDir,
		Logger:     a.logger,
	})

	err = srv.ListenAndServe(ctx, addr, func(bound net.Addr) {
		a.logger.Info("dtop listening",
			"addr", bound.String(),
			"backend", a.backend.Name(),
			"audit_log", logCfg.AuditFile,
			"request_log", logCfg.RequestFile)
	})
	if err != nil {
		a.logger.Error("server stopped", "error", err)
		return 1
	}
	a.logger.Info("dtop stopped")
	return 0
}
