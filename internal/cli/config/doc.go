// Package config defines the pcompress CLI configuration.
//
//   - spec.go: CLIConfig struct (~/.pcompress/cli.yaml)
//   - loader.go: loading through confloader, validation and saving
//
// Flags override PCOMPRESS_* environment variables, which override the
// file, which overrides the defaults.
package config
