package filter

import (
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/quillcms/quill/internal/ipmatch"
	"github.com/quillcms/quill/internal/maintenance"
)

// MaintenanceFilter gates every request behind the maintenance flag. It is
// meant to be the first filter on any route it guards, since nothing else
// should run while the site is down for non-allow-listed clients.
type MaintenanceFilter struct {
	manager *maintenance.Manager

	// viewPath optionally points at a custom maintenance page served
	// verbatim instead of the built-in one.
	viewPath string

	// trustedProxies limits which peers may supply X-Forwarded-For and
	// X-Real-IP. Empty means the headers are trusted from any peer, which
	// matches historical behavior but is only safe behind a controlled
	// proxy.
	trustedProxies []string
}

// NewMaintenanceFilter creates the maintenance gate.
func NewMaintenanceFilter(manager *maintenance.Manager, viewPath string, trustedProxies []string) *MaintenanceFilter {
	return &MaintenanceFilter{
		manager:        manager,
		viewPath:       viewPath,
		trustedProxies: trustedProxies,
	}
}

// Name implements Filter.
func (f *MaintenanceFilter) Name() string { return "maintenance" }

// Pre lets the request through when maintenance is off or the client is
// allow-listed, and otherwise short-circuits with the maintenance page.
// The page is served with status 200; no Retry-After header is set.
func (f *MaintenanceFilter) Pre(ctx *Context) Result {
	ip := resolveClientIP(ctx.Request, f.trustedProxies)
	ctx.ClientIP = ip

	if f.manager.IsIPAllowed(ip) {
		return Continue
	}

	return Terminal(HTML(http.StatusOK, f.renderPage()))
}

// renderPage returns the custom view verbatim when configured and present,
// else the built-in page.
func (f *MaintenanceFilter) renderPage() string {
	if f.viewPath != "" {
		if data, err := os.ReadFile(f.viewPath); err == nil {
			return string(data)
		}
	}

	var buf strings.Builder
	_ = maintenancePage.Execute(&buf, maintenancePageData{
		Message:       f.manager.Message(),
		RetryEstimate: humanizeSeconds(f.manager.RetryAfter()),
	})
	return buf.String()
}

type maintenancePageData struct {
	Message       string
	RetryEstimate string
}

var maintenancePage = template.Must(template.New("maintenance").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<meta name="robots" content="noindex">
	<title>Maintenance</title>
</head>
<body>
	<h1>Down for maintenance</h1>
	<p>{{.Message}}</p>
	{{if .RetryEstimate}}<p>Expected to be back in about {{.RetryEstimate}}.</p>{{end}}
</body>
</html>
`))

// humanizeSeconds renders a retry estimate as "2 hours and 15 minutes",
// falling back to plain seconds under one minute. Zero means no estimate.
func humanizeSeconds(total int) string {
	if total <= 0 {
		return ""
	}
	if total < 60 {
		return fmt.Sprintf("%d %s", total, plural(total, "second"))
	}

	hours := total / 3600
	minutes := (total % 3600) / 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%d %s and %d %s", hours, plural(hours, "hour"), minutes, plural(minutes, "minute"))
	case hours > 0:
		return fmt.Sprintf("%d %s", hours, plural(hours, "hour"))
	default:
		return fmt.Sprintf("%d %s", minutes, plural(minutes, "minute"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// resolveClientIP extracts the client IP with the precedence: first
// X-Forwarded-For entry, then X-Real-IP, then the connection peer. The
// headers are only honored when the peer passes the trusted-proxy check.
func resolveClientIP(r *http.Request, trustedProxies []string) string {
	peer := peerAddr(r)

	if peerTrusted(peer, trustedProxies) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Take the first IP in the list (original client)
			if idx := strings.Index(xff, ","); idx != -1 {
				xff = xff[:idx]
			}
			xff = strings.TrimSpace(xff)
			if xff != "" {
				return xff
			}
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	return peer
}

// peerTrusted reports whether forwarding headers from this peer may be
// believed. An empty proxy list trusts everyone, preserving the historical
// default.
func peerTrusted(peer string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return true
	}
	return ipmatch.Matches(peer, trustedProxies)
}

// peerAddr returns the bare connection peer address.
func peerAddr(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
