package config

// CLIConfig is the configuration for the pcompress CLI.
type CLIConfig struct {
	Encode  EncodeConfig  `koanf:"encode" yaml:"encode"`
	Decode  DecodeConfig  `koanf:"decode" yaml:"decode"`
	Catalog CatalogConfig `koanf:"catalog" yaml:"catalog"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Metrics MetricsConfig `koanf:"metrics" yaml:"metrics"`

	// Output is the report format: table, json or yaml.
	Output string `koanf:"output" yaml:"output"`
}

// EncodeConfig holds encode defaults.
type EncodeConfig struct {
	// Extreme enables relabelling of two-partition swaps.
	Extreme bool `koanf:"extreme" yaml:"extreme"`
	// Compression is the container for written chains: none or zstd.
	Compression string `koanf:"compression" yaml:"compression"`
}

// DecodeConfig holds decode defaults.
type DecodeConfig struct {
	// Diff emits deltas instead of snapshots.
	Diff bool `koanf:"diff" yaml:"diff"`
	// Follow keeps reading a chain that is still being written.
	Follow bool `koanf:"follow" yaml:"follow"`
	// FollowIdle stops following after this long without new data.
	// Zero follows until interrupted.
	FollowIdle string `koanf:"follow_idle" yaml:"follow_idle"`
}

// CatalogConfig locates the local chain catalog.
type CatalogConfig struct {
	DataDir string `koanf:"data_dir" yaml:"data_dir"`
}

// LogConfig configures CLI logging. Logs go to stderr.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// MetricsConfig configures the optional metrics dump.
type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in node-exporter
	// textfile format on exit.
	Textfile string `koanf:"textfile" yaml:"textfile"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Encode: EncodeConfig{
			Compression: "none",
		},
		Catalog: CatalogConfig{
			DataDir: DefaultDataDir(),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: "table",
	}
}

// Defaults returns Default as dotted keys for confloader.
func Defaults() map[string]any {
	d := Default()
	return map[string]any{
		"encode.extreme":     d.Encode.Extreme,
		"encode.compression": d.Encode.Compression,
		"decode.diff":        d.Decode.Diff,
		"decode.follow":      d.Decode.Follow,
		"decode.follow_idle": d.Decode.FollowIdle,
		"catalog.data_dir":   d.Catalog.DataDir,
		"log.level":          d.Log.Level,
		"log.format":         d.Log.Format,
		"metrics.textfile":   d.Metrics.Textfile,
		"output":             d.Output,
	}
}
