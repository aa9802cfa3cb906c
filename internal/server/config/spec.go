package config

// ServerConfig is the root configuration for pcompress-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server" yaml:"server"`
	Storage StorageSection `koanf:"storage" yaml:"storage"`
	Log     LogSection     `koanf:"log" yaml:"log"`
}

// ServerSection configures the HTTP API.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http" yaml:"http"`

	// UploadAPIKey guards POST /chains. Uploads are open when it is empty.
	UploadAPIKey string `koanf:"upload_api_key" yaml:"upload_api_key"`

	// MaxUploadBytes caps the request body of an upload.
	MaxUploadBytes int64 `koanf:"max_upload_bytes" yaml:"max_upload_bytes"`

	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`

	// RateBurst is the burst size of the per-IP limiter.
	RateBurst int `koanf:"rate_burst" yaml:"rate_burst"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr        string `koanf:"addr" yaml:"addr"`
	TLSCertFile string `koanf:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file" yaml:"tls_key_file"`
}

// StorageSection configures the chain catalog.
type StorageSection struct {
	DataDir string `koanf:"data_dir" yaml:"data_dir"`
	// GCInterval is the catalog value log GC interval, e.g. "10m".
	GCInterval string `koanf:"gc_interval" yaml:"gc_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}
