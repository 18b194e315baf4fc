package auth

import (
	"net/http"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "quill_session"

// Service resolves the current user and session from a request and manages
// the login/logout lifecycle. Logging in always creates a fresh session, so
// the session token and its CSRF token are regenerated on every login.
type Service struct {
	users    *UserStore
	sessions *SessionStore
}

// NewService creates a new Service.
func NewService(users *UserStore, sessions *SessionStore) *Service {
	return &Service{users: users, sessions: sessions}
}

// Users returns the underlying user store.
func (s *Service) Users() *UserStore {
	return s.users
}

// Session returns the request's session, or nil if there is none or it is
// no longer valid.
func (s *Service) Session(r *http.Request) *Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}

	session, err := s.sessions.GetByToken(cookie.Value)
	if err != nil {
		return nil
	}
	return session
}

// EnsureSession returns the request's session, creating an anonymous one
// (and setting its cookie) when the request has none.
func (s *Service) EnsureSession(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if session := s.Session(r); session != nil {
		return session, nil
	}

	session, err := s.sessions.Create(0)
	if err != nil {
		return nil, err
	}
	setSessionCookie(w, r, session)
	return session, nil
}

// CurrentUser returns the authenticated user for the request, or nil when
// the session is anonymous, missing, or stale.
func (s *Service) CurrentUser(r *http.Request) *User {
	session := s.Session(r)
	if session == nil || session.UserID == 0 {
		return nil
	}

	user, err := s.users.GetByID(session.UserID)
	if err != nil {
		return nil
	}
	return user
}

// Login authenticates the credentials and, on success, replaces the
// request's session with a fresh one bound to the user.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, username, password string) (*User, error) {
	user, err := s.users.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	// Discard any pre-login session so the token pair rotates.
	if old := s.Session(r); old != nil {
		_ = s.sessions.Delete(old.Token)
	}

	session, err := s.sessions.Create(user.ID)
	if err != nil {
		return nil, err
	}
	setSessionCookie(w, r, session)

	return user, nil
}

// Logout removes the request's session and expires its cookie.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return
	}

	_ = s.sessions.Delete(cookie.Value)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
