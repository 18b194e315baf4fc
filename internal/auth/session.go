package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// SessionDuration is how long a session is valid.
const SessionDuration = 24 * time.Hour

// tokenLength is the number of random bytes in a session or CSRF token.
const tokenLength = 32

// Session represents a browser session. Sessions exist before login so that
// CSRF tokens can be issued to anonymous visitors; UserID is zero until the
// session is bound to a user. The CSRF token is generated together with the
// session and only regenerated when the session itself is recreated.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	CSRFToken string
	CreatedAt time.Time
	ExpiresAt time.Time
}

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// SessionStore provides database operations for sessions.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// generateToken generates a URL-safe random token.
func generateToken() (string, error) {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create creates a new session. A zero userID creates an anonymous session.
func (s *SessionStore) Create(userID int64) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}
	csrfToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating csrf token: %w", err)
	}

	expiresAt := time.Now().Add(SessionDuration)

	var uid any
	if userID != 0 {
		uid = userID
	}

	result, err := s.db.Exec(
		`INSERT INTO sessions (user_id, token, csrf_token, expires_at) VALUES (?, ?, ?, ?)`,
		uid, token, csrfToken, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting session ID: %w", err)
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		CSRFToken: csrfToken,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}, nil
}

// GetByToken retrieves a session by its token. Expired sessions are removed
// and reported as ErrSessionExpired.
func (s *SessionStore) GetByToken(token string) (*Session, error) {
	session := &Session{}
	var userID sql.NullInt64

	err := s.db.QueryRow(
		`SELECT id, user_id, token, csrf_token, created_at, expires_at
		 FROM sessions WHERE token = ?`,
		token,
	).Scan(&session.ID, &userID, &session.Token, &session.CSRFToken, &session.CreatedAt, &session.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	if userID.Valid {
		session.UserID = userID.Int64
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.Delete(token)
		return nil, ErrSessionExpired
	}

	return session, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(token string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions.
func (s *SessionStore) DeleteExpired() error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now()); err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}
	return nil
}
