// Package maintenance owns the site-wide maintenance flag: a small JSON
// record persisted to disk while maintenance is active, and the manager
// that gates requests against it.
package maintenance

// State is the persisted maintenance record. The record exists on disk if
// and only if maintenance is enabled; disabling removes it entirely.
type State struct {
	Enabled    bool     `json:"enabled"`
	Message    string   `json:"message"`
	AllowedIPs []string `json:"allowed_ips"`
	RetryAfter int      `json:"retry_after,omitempty"`
	EnabledBy  string   `json:"enabled_by,omitempty"`
	EnabledAt  string   `json:"enabled_at"`
}

// DefaultMessage is shown when maintenance is enabled without a message,
// and returned by Manager.Message when maintenance is off.
const DefaultMessage = "We are currently performing scheduled maintenance. Please check back soon."

// DefaultAllowedIPs is the allow-list applied when enabling without an
// explicit one. Localhost is always reachable by default.
var DefaultAllowedIPs = []string{"127.0.0.1", "::1"}

// EnabledAtLayout is the timestamp format written to enabled_at.
const EnabledAtLayout = "2006-01-02T15:04:05"
