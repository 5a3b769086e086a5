// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// Subsystems log through named children so output can be filtered by
// component (proxy, capture, realtime, storage, ...).
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	proxyLog := logger.Component("proxy")
//	proxyLog.Info("fetched upstream", zap.String("url", target))
package logging
