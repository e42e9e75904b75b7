// Package logging provides structured logging for plugsync.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for console use (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - A discarding logger for tests and optional collaborators
//
// # Configuration
//
// Logging is configured via the logging section in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// The legacy knobs section (log_level_debug, log_to_console) is mapped onto
// these settings by the config package.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting bridge", "broker", cfg.MQTT.Broker.Host)
//	logger.Error("publish failed", "topic", topic, "error", err)
//
// Never log broker passwords or InfluxDB tokens.
package logging
