package config

// Default configuration values.
const (
	DefaultHTTPAddr       = "127.0.0.1:5080"
	DefaultMaxUploadBytes = 64 << 20 // 64MB
	DefaultRateLimit      = 20
	DefaultRateBurst      = 40

	DefaultDataDir    = "/var/lib/pcompress-server/data"
	DefaultGCInterval = "10m"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
			MaxUploadBytes: DefaultMaxUploadBytes,
			RateLimit:      DefaultRateLimit,
			RateBurst:      DefaultRateBurst,
		},
		Storage: StorageSection{
			DataDir:    DefaultDataDir,
			GCInterval: DefaultGCInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Defaults returns the default configuration as a flat koanf map.
func Defaults() map[string]any {
	d := Default()
	return map[string]any{
		"server.http.addr":          d.Server.HTTP.Addr,
		"server.http.tls_cert_file": d.Server.HTTP.TLSCertFile,
		"server.http.tls_key_file":  d.Server.HTTP.TLSKeyFile,
		"server.upload_api_key":     d.Server.UploadAPIKey,
		"server.max_upload_bytes":   d.Server.MaxUploadBytes,
		"server.rate_limit":         d.Server.RateLimit,
		"server.rate_burst":         d.Server.RateBurst,
		"storage.data_dir":          d.Storage.DataDir,
		"storage.gc_interval":       d.Storage.GCInterval,
		"log.level":                 d.Log.Level,
		"log.format":                d.Log.Format,
	}
}
