// Package logging provides structured logging for Gray Logic Device.
//
// This package wraps Go's standard log/slog package so that every component
// logs with the same shape: service and firmware version on every record,
// plus a component tag and, once the identity is loaded, the device client id.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	sup := logger.Component("connectivity").WithDevice(identity.ClientID())
//	sup.Info("session connected")
//
// # Security
//
// Never log the device auth token. Log the client id instead.
package logging
