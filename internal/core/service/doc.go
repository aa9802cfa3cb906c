// Package service provides the chain operations behind the CLI and the
// HTTP server.
//
// ChainService is stateless apart from its logger and metrics registry:
//
//   - Encode: JSON snapshot lines to a binary chain
//   - Replay: binary chain to snapshot or delta lines
//   - Inspect: per-record statistics without materializing output
//   - Verify: replay a chain against the snapshots it came from
//
// All operations take a context and stop between records when it is
// cancelled. Errors are domain errors from internal/core/domain.
package service
