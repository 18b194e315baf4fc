package maintenance

import (
	"errors"
	"log"
	"time"

	"github.com/quillcms/quill/internal/ipmatch"
)

// Manager owns the maintenance state lifecycle. Enable and Disable report
// success as a boolean rather than an error: storage failures on the
// operator path are logged and surfaced as false, never thrown into the
// request path.
type Manager struct {
	store *FileStore
}

// NewManager creates a Manager backed by the given store.
func NewManager(store *FileStore) *Manager {
	return &Manager{store: store}
}

// Enable turns maintenance mode on, fully replacing any previous state.
// An empty message falls back to DefaultMessage and a nil or empty
// allow-list falls back to DefaultAllowedIPs. Returns false if the state
// could not be persisted.
func (m *Manager) Enable(message string, allowedIPs []string, retryAfter int, enabledBy string) bool {
	if message == "" {
		message = DefaultMessage
	}
	if len(allowedIPs) == 0 {
		allowedIPs = append([]string(nil), DefaultAllowedIPs...)
	}

	state := &State{
		Enabled:    true,
		Message:    message,
		AllowedIPs: allowedIPs,
		RetryAfter: retryAfter,
		EnabledBy:  enabledBy,
		EnabledAt:  time.Now().Format(EnabledAtLayout),
	}

	if err := m.store.Save(state); err != nil {
		log.Printf("maintenance: enable failed: %v", err)
		return false
	}
	return true
}

// Disable turns maintenance mode off by removing the persisted record.
// Disabling an already-disabled system is a no-op success.
func (m *Manager) Disable() bool {
	if err := m.store.Remove(); err != nil {
		log.Printf("maintenance: disable failed: %v", err)
		return false
	}
	return true
}

// IsEnabled reports whether a valid persisted record with enabled=true
// exists. Corrupt or unreadable state reads as disabled.
func (m *Manager) IsEnabled() bool {
	return m.Status() != nil
}

// Status returns the full persisted state, or nil when maintenance is
// disabled. A record that fails to load is treated as disabled.
func (m *Manager) Status() *State {
	state, err := m.store.Load()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("maintenance: unreadable state treated as disabled: %v", err)
		}
		return nil
	}
	if !state.Enabled {
		return nil
	}
	return state
}

// Message returns the configured display message, or the built-in default
// when maintenance is disabled or no message was set.
func (m *Manager) Message() string {
	if state := m.Status(); state != nil && state.Message != "" {
		return state.Message
	}
	return DefaultMessage
}

// RetryAfter returns the configured retry estimate in seconds, or 0 when
// unset or disabled.
func (m *Manager) RetryAfter() int {
	if state := m.Status(); state != nil {
		return state.RetryAfter
	}
	return 0
}

// IsIPAllowed reports whether the given client IP may bypass maintenance
// gating. Every IP is allowed while maintenance is disabled; otherwise the
// persisted allow-list decides.
func (m *Manager) IsIPAllowed(ip string) bool {
	state := m.Status()
	if state == nil {
		return true
	}
	return ipmatch.Matches(ip, state.AllowedIPs)
}
