// Package logging provides structured logging for growctl.
//
// It wraps log/slog so every component logs with the same default
// fields (service, version) and the same level filtering.
//
// Configuration lives in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting controller", "tick", cfg.TickInterval())
//	logger.Error("device command failed", "device_id", id, "error", err)
package logging
