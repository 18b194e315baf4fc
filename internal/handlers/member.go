package handlers

import (
	"fmt"
	"html"
	"net/http"
)

// MemberHome is a placeholder member-area page. It runs behind the
// member-auth filter, so the user is always present and email-verified
// when verification is required.
func MemberHome(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<h1>Welcome back, %s</h1>", html.EscapeString(user.Username))
}
