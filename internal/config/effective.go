package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s: %s: %v", e.Source.position(), e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw over DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Listen != nil {
		cfg.Listen = *raw.Listen
	}
	if raw.DriftTolerance != nil {
		cfg.DriftTolerance = *raw.DriftTolerance
	}
	if raw.SettleDelayMS != nil {
		cfg.SettleDelayMS = *raw.SettleDelayMS
	}
	if raw.CaptureSettleMS != nil {
		cfg.CaptureSettleMS = *raw.CaptureSettleMS
	}
	if raw.Denylist != nil {
		cfg.Denylist = append([]string{}, raw.Denylist...)
	}
	if raw.StaticDir != nil {
		cfg.StaticDir = *raw.StaticDir
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.XAuthority != nil {
		cfg.XAuthority = *raw.XAuthority
	}

	if raw.Logging != nil {
		if raw.Logging.AuditFile != nil {
			cfg.Logging.AuditFile = *raw.Logging.AuditFile
		}
		if raw.Logging.RequestFile != nil {
			cfg.Logging.RequestFile = *raw.Logging.RequestFile
		}
		if raw.Logging.AccessFile != nil {
			cfg.Logging.AccessFile = *raw.Logging.AccessFile
		}
		if raw.Logging.MaxSizeMB != nil {
			cfg.Logging.MaxSizeMB = *raw.Logging.MaxSizeMB
		}
		if raw.Logging.MaxFiles != nil {
			cfg.Logging.MaxFiles = *raw.Logging.MaxFiles
		}
	}

	return cfg, nil
}
