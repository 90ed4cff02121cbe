// Package logger builds the application's zap logger.
//
// Level selects the preset: debug uses zap's development configuration with
// caller and stack information, anything else the production one. Format
// picks json or colored console output and Output lists the sinks.
//
// Request handlers log through WithRayID so every entry of one request
// carries the same ray_id field:
//
//	l := logger.WithRayID(log, c)
//	l.Error("Apply changes failed", zap.Error(err))
package logger
