package handlers

import (
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/quillcms/quill/internal/auth"
	"github.com/quillcms/quill/internal/mail"
)

// VerifyHandler drives the email verification flow for logged-in members.
// Codes are issued by the auth verifier and delivered by the mailer; when
// mail is not configured the code is logged for local development.
type VerifyHandler struct {
	auth     *auth.Service
	verifier *auth.Verifier
	mailer   *mail.Mailer
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(svc *auth.Service, verifier *auth.Verifier, mailer *mail.Mailer) *VerifyHandler {
	return &VerifyHandler{auth: svc, verifier: verifier, mailer: mailer}
}

type verifyData struct {
	Error     string
	Sent      bool
	CSRFToken string
}

var verifyPage = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<title>Verify your email</title>
</head>
<body>
	<h1>Verify your email</h1>
	{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
	{{if .Sent}}<p>We sent a verification code to your email address.</p>{{end}}
	<form method="post" action="/verify-email">
		<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
		<label>Verification code <input type="text" name="code" inputmode="numeric" autocomplete="one-time-code"></label>
		<button type="submit">Verify</button>
	</form>
</body>
</html>
`))

// Page issues a fresh code and renders the verification form. Runs behind
// the authentication filter, so a user is always present.
func (h *VerifyHandler) Page(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if user.EmailVerified {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	code, err := h.verifier.IssueCode(user)
	if err != nil {
		log.Printf("verify: issuing code for user %q: %v", user.Username, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if h.mailer != nil && h.mailer.IsEnabled() {
		expiresIn := fmt.Sprintf("%d minutes", int(auth.VerifyCodePeriod.Minutes()))
		if err := h.mailer.SendVerificationCode(user.Email, user.Username, code, expiresIn); err != nil {
			log.Printf("verify: sending code to user %q: %v", user.Username, err)
			h.render(w, r, verifyData{Error: "We could not send your verification email. Try again later."})
			return
		}
	} else {
		log.Printf("verify: code for user %q issued (dev delivery: %s)", user.Username, code)
	}

	h.render(w, r, verifyData{Sent: true})
}

// Submit checks the submitted code and marks the email verified.
func (h *VerifyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.render(w, r, verifyData{Error: "Invalid form data"})
		return
	}

	if err := h.verifier.ConfirmCode(user, r.FormValue("code")); err != nil {
		h.render(w, r, verifyData{Error: "That code is not valid. Check your email and try again."})
		return
	}

	log.Printf("verify: user %q confirmed email", user.Username)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *VerifyHandler) render(w http.ResponseWriter, r *http.Request, data verifyData) {
	if session := h.auth.Session(r); session != nil {
		data.CSRFToken = session.CSRFToken
	}
	if err := verifyPage.Execute(w, data); err != nil {
		http.Error(w, "Failed to render verification page", http.StatusInternalServerError)
	}
}
