package filter

import (
	"net/http"
	"strings"
)

// defaultSecurityHeaders returns the built-in header set. Overrides replace
// individual keys; they never clear the rest of the defaults.
func defaultSecurityHeaders() map[string]string {
	return map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"X-XSS-Protection":          "1; mode=block",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
		"Content-Security-Policy":   "default-src 'self'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	}
}

// SecurityHeadersFilter decorates responses with security headers. It has
// no pre-hook: it only augments whatever the handler produced.
type SecurityHeadersFilter struct {
	headers map[string]string
}

// NewSecurityHeadersFilter merges user overrides key by key on top of the
// built-in defaults. A nil override map keeps the defaults intact.
func NewSecurityHeadersFilter(overrides map[string]string) *SecurityHeadersFilter {
	headers := defaultSecurityHeaders()
	for name, value := range overrides {
		headers[name] = value
	}
	return &SecurityHeadersFilter{headers: headers}
}

// Name implements Filter.
func (f *SecurityHeadersFilter) Name() string { return "security-headers" }

// Post sets each configured header unless the response already carries it.
// Strict-Transport-Security is skipped entirely for plaintext requests.
func (f *SecurityHeadersFilter) Post(ctx *Context, resp *Response) {
	isTLS := ctx.Request.TLS != nil

	for name, value := range f.headers {
		if strings.EqualFold(name, "Strict-Transport-Security") && !isTLS {
			continue
		}
		if headerPresent(resp.Header, name) {
			continue
		}
		resp.Header.Set(name, value)
	}
}

// headerPresent checks for an existing header by case-insensitive name.
func headerPresent(h http.Header, name string) bool {
	_, ok := h[http.CanonicalHeaderKey(name)]
	return ok
}
