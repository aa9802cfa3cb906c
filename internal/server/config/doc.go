// Package config provides the pcompress-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values, also as a koanf defaults map
//   - verify.go: validation (addresses, limits, data directory)
//   - sanitize.go: masks the upload API key for logging
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// PCOMPRESS_ environment variables and flags.
package config
