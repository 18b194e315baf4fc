// Package handlers contains the HTTP handlers Quill needs around its
// gating pipeline: login, logout, email verification, health, and the
// operator's maintenance status view. Content management handlers live
// elsewhere and are not part of this module.
package handlers

import (
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/quillcms/quill/internal/auth"
	"github.com/quillcms/quill/internal/filter"
)

// AuthHandler handles login and logout requests.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// loginData holds data for the login page.
type loginData struct {
	Error     string
	CSRFToken string
	Redirect  string
}

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<title>Sign in</title>
</head>
<body>
	<h1>Sign in</h1>
	{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
	<form method="post" action="/login">
		<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
		<input type="hidden" name="redirect" value="{{.Redirect}}">
		<label>Username <input type="text" name="username" autocomplete="username"></label>
		<label>Password <input type="password" name="password" autocomplete="current-password"></label>
		<button type="submit">Sign in</button>
	</form>
</body>
</html>
`))

// LoginPage renders the login form, creating an anonymous session so the
// form carries a CSRF token before any authentication happens.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.auth.CurrentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	session, err := h.auth.EnsureSession(w, r)
	if err != nil {
		log.Printf("login: creating session: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.renderLogin(w, loginData{
		CSRFToken: session.CSRFToken,
		Redirect:  safeRedirect(r.URL.Query().Get("redirect")),
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, "Invalid form data")
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.auth.Login(w, r, username, password)
	if err != nil {
		h.renderLoginError(w, r, "Invalid username or password")
		return
	}

	log.Printf("login: user %q signed in", user.Username)
	http.Redirect(w, r, safeRedirect(r.FormValue("redirect")), http.StatusFound)
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(w, r)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, data loginData) {
	if err := loginPage.Execute(w, data); err != nil {
		http.Error(w, "Failed to render login page", http.StatusInternalServerError)
	}
}

func (h *AuthHandler) renderLoginError(w http.ResponseWriter, r *http.Request, msg string) {
	session, err := h.auth.EnsureSession(w, r)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
	h.renderLogin(w, loginData{
		Error:     msg,
		CSRFToken: session.CSRFToken,
		Redirect:  safeRedirect(r.FormValue("redirect")),
	})
}

// safeRedirect restricts post-login destinations to local paths.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}

// CurrentUser is a convenience for handlers running behind the
// authentication filters.
func CurrentUser(r *http.Request) *auth.User {
	return filter.GetUserFromContext(r.Context())
}
