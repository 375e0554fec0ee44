// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON lines on stderr
//   - Development: colored console output at debug level
//
// Components receive a plain *zap.Logger and name themselves with
// Named("hub"), Named("matcher") and so on. Common fields are context_id,
// nav_id and url.
//
// Example Usage:
//
//	logger := logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
//	defer logger.Sync()
//	logger.Info("Control API listening", zap.String("addr", addr))
package logging
