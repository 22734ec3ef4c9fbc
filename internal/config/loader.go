package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source records where an effective value came from.
type Source struct {
	Kind   SourceKind
	Name   string // set for defaults
	File   string
	Line   int
	Column int
}

func (s Source) position() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

type LoadResult struct {
	Config  *Config
	Path    string            // requested config path
	Sources map[string]Source // dotted key -> file that set it last
	Files   []string          // every file read, includes first
}

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "DTOP_CONFIG"

// DefaultConfigPath is $DTOP_CONFIG, else $XDG_CONFIG_HOME/dtop/config.yaml,
// else ~/.config/dtop/config.yaml.
func DefaultConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dtop", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dtop", "config.yaml"), nil
}

// Load reads the configuration from the default location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources is Load but keeps per-key sources for `config explain`.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file yields defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	res := &LoadResult{Path: path, Sources: map[string]Source{}}

	var raw RawConfig
	if _, err := os.Stat(path); err == nil {
		l := newIncludeLoader()
		top, err := l.load(path, nil)
		if err != nil {
			return nil, err
		}
		raw = top.raw
		res.Sources = top.sources
		res.Files = top.files
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, withSource(err, res.Sources)
	}
	res.Config = cfg
	return res, nil
}

// withSource points a validation error at the file position that set the
// offending key.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return err
}
