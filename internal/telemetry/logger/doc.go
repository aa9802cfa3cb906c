// Package logger provides structured logging for pcompress.
//
// It wraps the standard library log/slog:
//
//   - logger.go: Logger interface, JSON/text handlers, dynamic level
//   - context.go: context-aware logging with request/trace IDs
//
// The level is process-wide so the server can change it at runtime when
// its configuration file is edited.
package logger
