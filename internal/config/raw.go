package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawLoggingConfig struct {
	AuditFile   *string `yaml:"audit_file"`
	RequestFile *string `yaml:"request_file"`
	AccessFile  *string `yaml:"access_file"`
	MaxSizeMB   *int    `yaml:"max_size_mb"`
	MaxFiles    *int    `yaml:"max_files"`
}

// RawConfig mirrors the YAML file; nil means "not set here".
type RawConfig struct {
	Include         IncludeList       `yaml:"include"`
	Listen          *string           `yaml:"listen"`
	DriftTolerance  *float64          `yaml:"drift_tolerance"`
	SettleDelayMS   *int              `yaml:"settle_delay_ms"`
	CaptureSettleMS *int              `yaml:"capture_settle_ms"`
	Denylist        []string          `yaml:"denylist"`
	StaticDir       *string           `yaml:"static_dir"`
	LogLevel        *string           `yaml:"log_level"`
	Display         *string           `yaml:"display"`
	XAuthority      *string           `yaml:"xauthority"`
	Logging         *RawLoggingConfig `yaml:"logging"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Listen != nil {
		out.Listen = overlay.Listen
	}
	if overlay.DriftTolerance != nil {
		out.DriftTolerance = overlay.DriftTolerance
	}
	if overlay.SettleDelayMS != nil {
		out.SettleDelayMS = overlay.SettleDelayMS
	}
	if overlay.CaptureSettleMS != nil {
		out.CaptureSettleMS = overlay.CaptureSettleMS
	}
	// Lists replace rather than append so an overlay can shrink the denylist.
	if overlay.Denylist != nil {
		out.Denylist = overlay.Denylist
	}
	if overlay.StaticDir != nil {
		out.StaticDir = overlay.StaticDir
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}

	if overlay.Logging != nil {
		if out.Logging == nil {
			out.Logging = &RawLoggingConfig{}
		} else {
			copied := *out.Logging
			out.Logging = &copied
		}
		if overlay.Logging.AuditFile != nil {
			out.Logging.AuditFile = overlay.Logging.AuditFile
		}
		if overlay.Logging.RequestFile != nil {
			out.Logging.RequestFile = overlay.Logging.RequestFile
		}
		if overlay.Logging.AccessFile != nil {
			out.Logging.AccessFile = overlay.Logging.AccessFile
		}
		if overlay.Logging.MaxSizeMB != nil {
			out.Logging.MaxSizeMB = overlay.Logging.MaxSizeMB
		}
		if overlay.Logging.MaxFiles != nil {
			out.Logging.MaxFiles = overlay.Logging.MaxFiles
		}
	}

	return out
}
