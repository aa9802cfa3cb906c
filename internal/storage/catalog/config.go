package catalog

import "path/filepath"

// Config configures the chain catalog.
type Config struct {
	// DataDir holds the Badger index under catalog/ and chain files under
	// chains/.
	DataDir string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger tuning parameters for the metadata index.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 16MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 64MB
	ValueLogFileSize int64

	// SyncWrites enables fsync after each write.
	// Default: true, the catalog is the only copy of chain metadata.
	SyncWrites bool
}

// DefaultConfig returns the default catalog configuration.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		Badger:  DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        16 << 20, // 16MB
		ValueLogFileSize: 64 << 20, // 64MB
		SyncWrites:       true,
	}
}

func (c Config) indexDir() string {
	return filepath.Join(c.DataDir, "catalog")
}

func (c Config) chainsDir() string {
	return filepath.Join(c.DataDir, "chains")
}
