package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":            true,
	"proxy-authorization":      true,
	"cookie":                   true,
	"set-cookie":               true,
	"x-goog-api-key":           true,
	"x-goog-visitor-id":        true,
	"x-youtube-identity-token": true,

	// Google session cookies
	"sid":                true,
	"hsid":               true,
	"ssid":               true,
	"apisid":             true,
	"sapisid":            true,
	"login_info":         true,
	"consent":            true,
	"visitor_info1_live": true,
	"visitor_data":       true,

	// Generic credentials
	"password": true,
	"api_key":  true,
	"apikey":   true,
	"key":      true,
}

// sensitiveKeywords mark a key as sensitive when contained in it.
var sensitiveKeywords = []string{
	"password", "secret", "token", "authorization", "cookie", "credential", "sapisid", "session",
}

// sensitivePatterns are values masked regardless of their key.
var sensitivePatterns = []*regexp.Regexp{
	// Google API keys, as embedded in YouTube pages (INNERTUBE_API_KEY).
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),

	// Authorization header schemes
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^sapisidhash\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// OAuth access tokens
	regexp.MustCompile(`^ya29\.[0-9A-Za-z_-]+$`),
}

// queryCredential matches credential parameters inside URLs, e.g. the
// ?key= of innertube requests.
var queryCredential = regexp.MustCompile(`(?i)([?&](?:key|token|access_token|sig)=)[^&#\s]+`)

// MaskValue replaces sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks cookies, authorization
// headers and API keys before records reach it.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the underlying handler handles level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, sanitizeString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a handler with the masked attributes added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized)}
}

// WithGroup returns a handler that nests attributes under name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, sanitizeString(a.Value.String()))
	case slog.KindAny:
		if headers, ok := a.Value.Any().(map[string][]string); ok {
			return slog.Any(a.Key, sanitizeHeaders(headers))
		}
		if headers, ok := a.Value.Any().(map[string]string); ok {
			return slog.Any(a.Key, sanitizeStringMap(headers))
		}
	}
	return a
}

// sanitizeString masks the whole value when it looks like a credential and
// otherwise masks credential query parameters of any URL in it.
func sanitizeString(value string) string {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return MaskValue
		}
	}
	return queryCredential.ReplaceAllString(value, "${1}"+MaskValue)
}

func sanitizeHeaders(headers map[string][]string) map[string][]string {
	out := make(map[string][]string, len(headers))
	for k, values := range headers {
		if isSensitiveKey(k) {
			out[k] = []string{MaskValue}
			continue
		}
		masked := make([]string, len(values))
		for i, v := range values {
			masked[i] = sanitizeString(v)
		}
		out[k] = masked
	}
	return out
}

func sanitizeStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = MaskValue
			continue
		}
		out[k] = sanitizeString(v)
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if sensitiveKeys[lower] || strings.HasPrefix(lower, "__secure-") {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// NewSecureLogger returns a text logger on w that masks sensitive values.
// The level is Debug when verbose and Warn otherwise.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
