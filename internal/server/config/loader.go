package config

import (
	"github.com/yndnr/pcompress-go/internal/infra/confloader"
)

// NewLoader returns a loader for the server configuration: defaults, then
// the file at path (if any), then PCOMPRESS_ environment variables.
func NewLoader(path string) *confloader.Loader {
	opts := []confloader.Option{confloader.WithDefaults(Defaults())}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	return confloader.NewLoader(opts...)
}

// Load reads and verifies the configuration from loader. It is used both
// at startup and when the config file changes.
func Load(loader *confloader.Loader) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
