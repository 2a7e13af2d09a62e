// Package logger provides structured logging for SaveKeep.
//
// It wraps log/slog behind a small Logger interface:
//
//   - logger.go: handler setup, dynamic level, package-level default
//   - context.go: logger and session id propagation through context
//   - redact.go: masking of key material in log attributes
package logger
