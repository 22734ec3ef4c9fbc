package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths:
//
//	listen
//	drift_tolerance
//	settle_delay_ms
//	capture_settle_ms
//	denylist
//	static_dir
//	log_level
//	display
//	xauthority
//	logging.audit_file
//	logging.request_file
//	logging.access_file
//	logging.max_size_mb
//	logging.max_files
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// ExplainPaths lists every path Explain accepts, in file order.
func ExplainPaths() []string {
	return []string{
		"listen",
		"drift_tolerance",
		"settle_delay_ms",
		"capture_settle_ms",
		"denylist",
		"static_dir",
		"log_level",
		"display",
		"xauthority",
		"logging.audit_file",
		"logging.request_file",
		"logging.access_file",
		"logging.max_size_mb",
		"logging.max_files",
	}
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	if len(parts) == 2 && parts[0] == "logging" {
		switch parts[1] {
		case "audit_file":
			return cfg.Logging.AuditFile, nil
		case "request_file":
			return cfg.Logging.RequestFile, nil
		case "access_file":
			return cfg.Logging.AccessFile, nil
		case "max_size_mb":
			return cfg.Logging.MaxSizeMB, nil
		case "max_files":
			return cfg.Logging.MaxFiles, nil
		}
		return nil, fmt.Errorf("unknown path: %s", path)
	}
	if len(parts) != 1 {
		return nil, fmt.Errorf("unknown path: %s", path)
	}

	switch parts[0] {
	case "listen":
		return cfg.Listen, nil
	case "drift_tolerance":
		return cfg.DriftTolerance, nil
	case "settle_delay_ms":
		return cfg.SettleDelayMS, nil
	case "capture_settle_ms":
		return cfg.CaptureSettleMS, nil
	case "denylist":
		return cfg.Denylist, nil
	case "static_dir":
		return cfg.StaticDir, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "display":
		return cfg.Display, nil
	case "xauthority":
		return cfg.XAuthority, nil
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
