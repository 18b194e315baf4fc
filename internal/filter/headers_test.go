package filter

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func securityHeadersContext(tlsOn bool) *Context {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	if tlsOn {
		r.TLS = &tls.ConnectionState{}
	}
	return &Context{Request: r}
}

func TestSecurityHeadersDefaults(t *testing.T) {
	f := NewSecurityHeadersFilter(nil)
	resp := NewResponse()

	f.Post(securityHeadersContext(true), resp)

	want := map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"X-XSS-Protection":          "1; mode=block",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
		"Content-Security-Policy":   "default-src 'self'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	}
	for name, value := range want {
		if got := resp.Header.Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
}

func TestSecurityHeadersOverrideMergesKeyByKey(t *testing.T) {
	f := NewSecurityHeadersFilter(map[string]string{
		"Content-Security-Policy": "default-src 'none'",
	})
	resp := NewResponse()

	f.Post(securityHeadersContext(true), resp)

	if got := resp.Header.Get("Content-Security-Policy"); got != "default-src 'none'" {
		t.Errorf("CSP = %q, want the override", got)
	}
	// Overriding one key must not disturb the other defaults.
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want default DENY", got)
	}
}

func TestSecurityHeadersSkipsHSTSWithoutTLS(t *testing.T) {
	f := NewSecurityHeadersFilter(nil)
	resp := NewResponse()

	f.Post(securityHeadersContext(false), resp)

	if got := resp.Header.Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q on a plaintext request, want unset", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Error("other headers must still be set on plaintext requests")
	}
}

func TestSecurityHeadersDoesNotOverwriteExisting(t *testing.T) {
	f := NewSecurityHeadersFilter(nil)
	resp := NewResponse()
	resp.Header.Set("X-Frame-Options", "SAMEORIGIN")

	f.Post(securityHeadersContext(true), resp)

	if got := resp.Header.Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q, handler-set value was replaced", got)
	}
	if values := resp.Header.Values("X-Frame-Options"); len(values) != 1 {
		t.Errorf("X-Frame-Options has %d values, want 1 (no duplicates)", len(values))
	}
}

func TestSecurityHeadersCaseInsensitiveSkip(t *testing.T) {
	f := NewSecurityHeadersFilter(nil)
	resp := NewResponse()
	// http.Header canonicalizes on Set; construct a canonical entry through
	// a differently-cased name the way a handler would.
	resp.Header.Set("x-content-type-options", "none")

	f.Post(securityHeadersContext(true), resp)

	if got := resp.Header.Get("X-Content-Type-Options"); got != "none" {
		t.Errorf("X-Content-Type-Options = %q, existing value was replaced", got)
	}
}
