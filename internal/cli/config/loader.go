package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/infra/confloader"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".pcompress", "cli.yaml")
}

// DefaultDataDir returns the default catalog directory.
func DefaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".pcompress", "data")
}

// Load loads the CLI configuration. An empty path uses DefaultConfigPath;
// a missing file is not an error. overrides are dotted keys, usually from
// flags, applied last.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath()
	}

	opts := []confloader.Option{confloader.WithDefaults(Defaults())}
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, confloader.WithConfigFile(path))
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	loader := confloader.NewLoader(opts...)
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
	}

	cfg := &CLIConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and duration fields.
func (c *CLIConfig) Validate() error {
	var errs []string

	if _, err := domain.ParseCompression(c.Encode.Compression); err != nil {
		errs = append(errs, fmt.Sprintf("encode.compression: unknown value %q", c.Encode.Compression))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level: unknown value %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format: unknown value %q", c.Log.Format))
	}
	switch strings.ToLower(c.Output) {
	case "table", "json", "yaml":
	default:
		errs = append(errs, fmt.Sprintf("output: unknown value %q", c.Output))
	}
	if c.Decode.FollowIdle != "" {
		if d, err := time.ParseDuration(c.Decode.FollowIdle); err != nil || d < 0 {
			errs = append(errs, fmt.Sprintf("decode.follow_idle: invalid duration %q", c.Decode.FollowIdle))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// FollowIdleTimeout returns decode.follow_idle as a duration.
func (c *CLIConfig) FollowIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Decode.FollowIdle)
	return d
}

// Save writes cfg as YAML. The directory is created if needed.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
