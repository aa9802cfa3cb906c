// Package command defines the pcompress CLI with urfave/cli/v2.
//
//   - root.go: App, global flags, config/logger/metrics setup
//   - encode.go, decode.go: snapshot files to chains and back
//   - stat.go, verify.go: chain reports
//   - chain.go: the local chain catalog
//   - config.go, version.go: housekeeping
//
// Record streams go to stdout (or a named file) untouched by the output
// formatter; logs go to stderr.
package command
