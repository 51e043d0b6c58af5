// Package log provides an slog handler that masks credentials before they
// reach the log output.
//
// Scans may carry consent and session cookies from the configuration file,
// and YouTube pages embed API keys in request URLs. SecureHandler masks:
//   - attributes named after HTTP credentials (Cookie, Authorization) and
//     Google session cookies (SID, SAPISID, CONSENT, ...)
//   - values that look like API keys or bearer tokens
//   - key= and token= parameters inside URLs
//   - header maps, entry by entry
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
