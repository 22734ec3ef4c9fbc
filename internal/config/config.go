package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/1broseidon/dtop/internal/runtimepath"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen          = "127.0.0.1:8000"
	DefaultDriftTolerance  = 0.2
	DefaultSettleDelayMS   = 1000
	MinSettleDelayMS       = 1000
	DefaultCaptureSettleMS = 300
	DefaultMaxSizeMB       = 10
	DefaultMaxFiles        = 3
)

// DefaultDenylist hides menu-bar extras and other system surfaces that the
// macOS window server reports as windows.
func DefaultDenylist() []string {
	return []string{
		"Control Center",
		"Spotlight",
		"SystemUIServer",
		"Window Server",
		"Dock",
		"BentoBox",
		"Siri",
		"NowPlaying",
		"KeyboardBrightness",
		"Battery",
		"WiFi",
		"Clock",
		"Menubar",
		"Item-0",
	}
}

// LoggingConfig holds file log settings. MaxSizeMB and MaxFiles rotate the
// request and access logs; the audit log is never rotated.
type LoggingConfig struct {
	AuditFile   string `yaml:"audit_file"`
	RequestFile string `yaml:"request_file"`
	AccessFile  string `yaml:"access_file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxFiles    int    `yaml:"max_files"`
}

// Config is the effective dtop configuration.
type Config struct {
	Listen          string        `yaml:"listen"`
	DriftTolerance  float64       `yaml:"drift_tolerance"`
	SettleDelayMS   int           `yaml:"settle_delay_ms"`
	CaptureSettleMS int           `yaml:"capture_settle_ms"`
	Denylist        []string      `yaml:"denylist"`
	StaticDir       string        `yaml:"static_dir"`
	LogLevel        string        `yaml:"log_level"`
	Display         string        `yaml:"display"`
	XAuthority      string        `yaml:"xauthority"`
	Logging         LoggingConfig `yaml:"logging"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		DriftTolerance:  DefaultDriftTolerance,
		SettleDelayMS:   DefaultSettleDelayMS,
		CaptureSettleMS: DefaultCaptureSettleMS,
		Denylist:        DefaultDenylist(),
		LogLevel:        "info",
		Logging: LoggingConfig{
			MaxSizeMB: DefaultMaxSizeMB,
			MaxFiles:  DefaultMaxFiles,
		},
	}
}

// SettleDelay returns the post-activation delay used before input replay.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// CaptureSettle returns the post-activation delay used before a screenshot.
func (c *Config) CaptureSettle() time.Duration {
	return time.Duration(c.CaptureSettleMS) * time.Millisecond
}

// GetLoggingConfig returns the logging configuration with default file
// locations under the state directory.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{}
	}
	cfg := c.Logging
	stateDir, err := runtimepath.StateDir()
	if err != nil {
		stateDir = "."
	}
	if cfg.AuditFile == "" {
		cfg.AuditFile = filepath.Join(stateDir, "automation.log")
	}
	if cfg.RequestFile == "" {
		cfg.RequestFile = filepath.Join(stateDir, "requests.jsonl")
	}
	if cfg.AccessFile == "" {
		cfg.AccessFile = filepath.Join(stateDir, "access.log")
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	cfg.AuditFile = expandHome(cfg.AuditFile)
	cfg.RequestFile = expandHome(cfg.RequestFile)
	cfg.AccessFile = expandHome(cfg.AccessFile)
	return cfg
}

// Marshal renders the effective config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return &ValidationError{Path: "listen", Err: fmt.Errorf("listen is required")}
	}
	if math.IsNaN(c.DriftTolerance) || c.DriftTolerance <= 0 || c.DriftTolerance > 1 {
		return &ValidationError{Path: "drift_tolerance", Err: fmt.Errorf("drift_tolerance must be in (0, 1]")}
	}
	if c.SettleDelayMS < MinSettleDelayMS {
		return &ValidationError{Path: "settle_delay_ms", Err: fmt.Errorf("settle_delay_ms must be >= %d", MinSettleDelayMS)}
	}
	if c.CaptureSettleMS < 0 {
		return &ValidationError{Path: "capture_settle_ms", Err: fmt.Errorf("capture_settle_ms must be >= 0")}
	}
	for i, k := range c.Denylist {
		if strings.TrimSpace(k) == "" {
			return &ValidationError{Path: "denylist", Err: fmt.Errorf("denylist entry %d is empty", i)}
		}
	}
	if c.StaticDir != "" {
		info, err := os.Stat(expandHome(c.StaticDir))
		if err != nil || !info.IsDir() {
			return &ValidationError{Path: "static_dir", Err: fmt.Errorf("static_dir %q is not a directory", c.StaticDir)}
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
