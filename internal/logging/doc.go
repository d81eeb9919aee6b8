// Package logging provides the structured diagnostic log for apswitch.
//
// This package wraps a zap logger with convenience functions for the events
// the access point reports during bring-up and while serving: network
// configuration progress, the resulting AP address, TLS credential status,
// route registration and web server state.
//
// # Log Levels
//
//   - Debug: connection and TLS handshake details
//   - Info: bring-up progress, requests, server status
//   - Warn: example credential in use, non-fatal bring-up issues
//   - Error: fatal configuration or bring-up failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level falls back to APSWITCH_LOG_LEVEL, then to "info".
// The level "silent" disables output entirely.
//
// # Output Format
//
// Logs are written to stdout in console format. Level colours are only used
// when stdout is a terminal:
//
//	2026-04-05T10:30:45.123+0000  INFO  Access point is up  {"address": "192.168.1.1"}
package logging
