package auth

import "crypto/subtle"

// ValidateCSRFToken reports whether the presented token matches the
// session's synchronizer token. The comparison is constant-time to avoid
// leaking token prefixes through timing.
func ValidateCSRFToken(session *Session, presented string) bool {
	if session == nil || session.CSRFToken == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(presented)) == 1
}
