package filter

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/quillcms/quill/internal/maintenance"
)

func newTestManager(t *testing.T) *maintenance.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "maintenance.json")
	return maintenance.NewManager(maintenance.NewFileStore(path))
}

func TestMaintenanceFilterDisabledContinues(t *testing.T) {
	f := NewMaintenanceFilter(newTestManager(t), "", nil)

	r := httptest.NewRequest(http.MethodGet, "/posts", nil)
	r.RemoteAddr = "203.0.113.5:4711"
	ctx := &Context{Request: r, RoutePath: "/posts"}

	if _, stop := f.Pre(ctx).ShortCircuit(); stop {
		t.Error("expected continue while maintenance is disabled")
	}
	if ctx.ClientIP != "203.0.113.5" {
		t.Errorf("client IP = %q, want 203.0.113.5", ctx.ClientIP)
	}
}

func TestMaintenanceFilterBlocksAndRenders(t *testing.T) {
	manager := newTestManager(t)
	if !manager.Enable("Upgrading", nil, 5400, "ops") {
		t.Fatal("enable failed")
	}
	f := NewMaintenanceFilter(manager, "", nil)

	r := httptest.NewRequest(http.MethodGet, "/posts", nil)
	r.RemoteAddr = "203.0.113.5:4711"

	resp, stop := f.Pre(&Context{Request: r, RoutePath: "/posts"}).ShortCircuit()
	if !stop {
		t.Fatal("expected short-circuit for blocked IP")
	}

	// The page is deliberately served as 200, not 503.
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	body := resp.Body.String()
	if !strings.Contains(body, "Upgrading") {
		t.Error("page does not contain the configured message")
	}
	if !strings.Contains(body, `<meta name="robots" content="noindex">`) {
		t.Error("page does not contain the robots noindex tag")
	}
	if !strings.Contains(body, `<meta name="viewport"`) {
		t.Error("page does not contain a viewport tag")
	}
	if !regexp.MustCompile(`(?i)\d+\s+hour`).MatchString(body) {
		t.Errorf("page does not contain an hour estimate: %s", body)
	}
}

func TestMaintenanceFilterAllowsDefaultLocalhost(t *testing.T) {
	manager := newTestManager(t)
	if !manager.Enable("Upgrading", nil, 0, "") {
		t.Fatal("enable failed")
	}
	f := NewMaintenanceFilter(manager, "", nil)

	for _, addr := range []string{"127.0.0.1:999", "[::1]:999"} {
		r := httptest.NewRequest(http.MethodGet, "/posts", nil)
		r.RemoteAddr = addr
		if _, stop := f.Pre(&Context{Request: r}).ShortCircuit(); stop {
			t.Errorf("expected %s to pass via the default allow-list", addr)
		}
	}
}

func TestMaintenanceFilterCustomView(t *testing.T) {
	manager := newTestManager(t)
	if !manager.Enable("ignored message", nil, 0, "") {
		t.Fatal("enable failed")
	}

	viewPath := filepath.Join(t.TempDir(), "maintenance.html")
	custom := "<html><body>custom page</body></html>"
	if err := os.WriteFile(viewPath, []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewMaintenanceFilter(manager, viewPath, nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:1"

	resp, stop := f.Pre(&Context{Request: r}).ShortCircuit()
	if !stop {
		t.Fatal("expected short-circuit")
	}
	if resp.Body.String() != custom {
		t.Errorf("body = %q, want the custom view verbatim", resp.Body.String())
	}
}

func TestMaintenanceFilterMissingCustomViewFallsBack(t *testing.T) {
	manager := newTestManager(t)
	if !manager.Enable("real message", nil, 0, "") {
		t.Fatal("enable failed")
	}
	f := NewMaintenanceFilter(manager, filepath.Join(t.TempDir(), "absent.html"), nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:1"

	resp, stop := f.Pre(&Context{Request: r}).ShortCircuit()
	if !stop {
		t.Fatal("expected short-circuit")
	}
	if !strings.Contains(resp.Body.String(), "real message") {
		t.Error("expected built-in page when the custom view is missing")
	}
}

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name           string
		remoteAddr     string
		xff            string
		xri            string
		trustedProxies []string
		want           string
	}{
		{
			name:       "no headers uses peer",
			remoteAddr: "198.51.100.7:4711",
			want:       "198.51.100.7",
		},
		{
			name:       "xff first entry wins",
			remoteAddr: "198.51.100.7:4711",
			xff:        "203.0.113.5, 10.0.0.1",
			want:       "203.0.113.5",
		},
		{
			name:       "xri when no xff",
			remoteAddr: "198.51.100.7:4711",
			xri:        "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "xff beats xri",
			remoteAddr: "198.51.100.7:4711",
			xff:        "203.0.113.5",
			xri:        "203.0.113.9",
			want:       "203.0.113.5",
		},
		{
			name:           "untrusted peer ignores headers",
			remoteAddr:     "198.51.100.7:4711",
			xff:            "203.0.113.5",
			trustedProxies: []string{"10.0.0.0/8"},
			want:           "198.51.100.7",
		},
		{
			name:           "trusted peer honors headers",
			remoteAddr:     "10.1.2.3:4711",
			xff:            "203.0.113.5",
			trustedProxies: []string{"10.0.0.0/8"},
			want:           "203.0.113.5",
		},
		{
			name:       "blank xff falls through to xri",
			remoteAddr: "198.51.100.7:4711",
			xff:        "  ",
			xri:        "203.0.113.9",
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}

			if got := resolveClientIP(r, tt.trustedProxies); got != tt.want {
				t.Errorf("resolveClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHumanizeSeconds(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, ""},
		{1, "1 second"},
		{45, "45 seconds"},
		{60, "1 minute"},
		{120, "2 minutes"},
		{3600, "1 hour"},
		{5400, "1 hour and 30 minutes"},
		{8100, "2 hours and 15 minutes"},
		{7200, "2 hours"},
	}

	for _, tt := range tests {
		if got := humanizeSeconds(tt.seconds); got != tt.want {
			t.Errorf("humanizeSeconds(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

// TestMaintenanceEndToEnd drives the full chain: a blocked client sees the
// maintenance page, an allow-listed one reaches the handler untouched.
func TestMaintenanceEndToEnd(t *testing.T) {
	manager := newTestManager(t)
	if !manager.Enable("Upgrading", nil, 5400, "ops") {
		t.Fatal("enable failed")
	}

	router := newTestRouter(NewMaintenanceFilter(manager, "", nil))
	router.HandleFunc("/posts", []string{"maintenance"}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("the posts"))
	})

	r := httptest.NewRequest(http.MethodGet, "/posts", nil)
	r.RemoteAddr = "203.0.113.5:1"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if !strings.Contains(rec.Body.String(), "Upgrading") {
		t.Error("blocked client did not get the maintenance page")
	}
	if !regexp.MustCompile(`(?i)\d+\s+hour`).MatchString(rec.Body.String()) {
		t.Error("blocked client did not get a retry estimate")
	}

	r = httptest.NewRequest(http.MethodGet, "/posts", nil)
	r.RemoteAddr = "127.0.0.1:1"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Body.String() != "the posts" {
		t.Errorf("allow-listed client got %q, want the handler output", rec.Body.String())
	}
}
