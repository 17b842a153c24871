// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Log Levels:
//   - Debug: Verbose debugging information
//   - Info: General informational messages
//   - Warn: Warning messages
//   - Error: Error messages
//   - Fatal: Fatal errors (exits process)
//
// Features:
//   - Zero-allocation logging in production
//   - Structured fields for context
//   - Named child loggers per kernel component
//
// Example Usage:
//
//	logger := logging.NewDefault().Named("vfs")
//	logger.Info("namespace loaded", zap.Int("nodes", count))
//	logger.Error("flush failed", zap.String("path", p), zap.Error(err))
package logging
