package filter

import (
	"fmt"
	"log"
	"net/http"

	"github.com/quillcms/quill/internal/auth"
)

// CSRFFormField is the request body field carrying the synchronizer token.
const CSRFFormField = "csrf_token"

// CSRFHeader is the header alternative for API-style clients. The body
// field takes precedence when both are present.
const CSRFHeader = "X-CSRF-TOKEN"

// CsrfFilter validates the per-session synchronizer token on every
// state-changing request. Safe methods (GET, HEAD, OPTIONS) are exempt.
// The filter has no user requirement; anonymous sessions carry tokens too.
type CsrfFilter struct {
	auth *auth.Service
}

// NewCsrfFilter creates the filter.
func NewCsrfFilter(svc *auth.Service) (*CsrfFilter, error) {
	if svc == nil {
		return nil, fmt.Errorf("csrf filter: %w: auth service", ErrMissingCollaborator)
	}
	return &CsrfFilter{auth: svc}, nil
}

// Name implements Filter.
func (f *CsrfFilter) Name() string { return "csrf" }

// Pre validates the token for non-exempt methods.
func (f *CsrfFilter) Pre(ctx *Context) Result {
	return f.check(ctx)
}

// check is shared with AuthCsrfFilter.
func (f *CsrfFilter) check(ctx *Context) Result {
	if csrfExempt(ctx.Request.Method) {
		return Continue
	}

	token := extractCSRFToken(ctx.Request)
	if token == "" {
		log.Printf("csrf: token missing request_id=%s path=%s", ctx.RequestID, ctx.RoutePath)
		return Terminal(Text(http.StatusForbidden, "CSRF token missing"))
	}

	session := ctx.Session
	if session == nil {
		session = f.auth.Session(ctx.Request)
		ctx.Session = session
	}

	if !auth.ValidateCSRFToken(session, token) {
		log.Printf("csrf: invalid token request_id=%s path=%s", ctx.RequestID, ctx.RoutePath)
		return Terminal(Text(http.StatusForbidden, "Invalid CSRF token"))
	}
	return Continue
}

// csrfExempt reports whether the method is safe and needs no token.
func csrfExempt(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// extractCSRFToken reads the token from the body field first, then the
// header.
func extractCSRFToken(r *http.Request) string {
	if token := r.PostFormValue(CSRFFormField); token != "" {
		return token
	}
	return r.Header.Get(CSRFHeader)
}

// AuthCsrfFilter composes authentication and CSRF validation in that
// order: an unauthenticated request is redirected to login without ever
// evaluating its token, and an authenticated state-changing request must
// still carry a valid token.
type AuthCsrfFilter struct {
	authn *AuthenticationFilter
	csrf  *CsrfFilter
}

// NewAuthCsrfFilter creates the composite.
func NewAuthCsrfFilter(svc *auth.Service, loginURL string) (*AuthCsrfFilter, error) {
	authn, err := NewAuthenticationFilter(svc, loginURL)
	if err != nil {
		return nil, err
	}
	csrf, err := NewCsrfFilter(svc)
	if err != nil {
		return nil, err
	}
	return &AuthCsrfFilter{authn: authn, csrf: csrf}, nil
}

// Name implements Filter.
func (f *AuthCsrfFilter) Name() string { return "auth-csrf" }

// Pre runs the authentication check first, then the CSRF check.
func (f *AuthCsrfFilter) Pre(ctx *Context) Result {
	_, result := f.authn.authenticate(ctx)
	if _, stop := result.ShortCircuit(); stop {
		return result
	}
	return f.csrf.check(ctx)
}
