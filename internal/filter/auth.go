package filter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/quillcms/quill/internal/auth"
)

// ErrMissingCollaborator is returned when a filter is constructed without a
// required dependency. This is a startup failure, never a per-request one.
var ErrMissingCollaborator = errors.New("missing collaborator")

// AuthenticationFilter requires a logged-in user. Unauthenticated requests
// are redirected to the login URL with the original destination carried in
// a redirect parameter.
type AuthenticationFilter struct {
	auth     *auth.Service
	loginURL string
}

// NewAuthenticationFilter creates the filter. The auth service and login
// URL are mandatory.
func NewAuthenticationFilter(svc *auth.Service, loginURL string) (*AuthenticationFilter, error) {
	if svc == nil {
		return nil, fmt.Errorf("authentication filter: %w: auth service", ErrMissingCollaborator)
	}
	if loginURL == "" {
		return nil, fmt.Errorf("authentication filter: %w: login URL", ErrMissingCollaborator)
	}
	return &AuthenticationFilter{auth: svc, loginURL: loginURL}, nil
}

// Name implements Filter.
func (f *AuthenticationFilter) Name() string { return "auth" }

// Pre resolves the current user, publishing it to the request context on
// success and redirecting to login otherwise.
func (f *AuthenticationFilter) Pre(ctx *Context) Result {
	_, result := f.authenticate(ctx)
	return result
}

// authenticate performs the shared resolution used by this filter and the
// composites built on it.
func (f *AuthenticationFilter) authenticate(ctx *Context) (*auth.User, Result) {
	user := f.auth.CurrentUser(ctx.Request)
	if user == nil {
		return nil, Terminal(Redirect(loginRedirectURL(f.loginURL, ctx)))
	}

	ctx.User = user
	if ctx.Session == nil {
		ctx.Session = f.auth.Session(ctx.Request)
	}
	return user, Continue
}

// loginRedirectURL builds loginURL plus a redirect parameter carrying the
// intended path and query, using '&' when the login URL already has a query
// string.
func loginRedirectURL(loginURL string, ctx *Context) string {
	intended := ctx.Request.URL.Path
	if q := ctx.Request.URL.RawQuery; q != "" {
		intended += "?" + q
	}

	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + "redirect=" + url.QueryEscape(intended)
}

// MemberAuthenticationFilter requires a logged-in user whose email address
// has been verified, when verification is required by configuration.
type MemberAuthenticationFilter struct {
	inner           *AuthenticationFilter
	verifyURL       string
	requireVerified bool
}

// NewMemberAuthenticationFilter creates the filter. The verify URL is
// mandatory when verification is required.
func NewMemberAuthenticationFilter(svc *auth.Service, loginURL, verifyURL string, requireVerified bool) (*MemberAuthenticationFilter, error) {
	inner, err := NewAuthenticationFilter(svc, loginURL)
	if err != nil {
		return nil, err
	}
	if requireVerified && verifyURL == "" {
		return nil, fmt.Errorf("member authentication filter: %w: verify email URL", ErrMissingCollaborator)
	}
	return &MemberAuthenticationFilter{
		inner:           inner,
		verifyURL:       verifyURL,
		requireVerified: requireVerified,
	}, nil
}

// Name implements Filter.
func (f *MemberAuthenticationFilter) Name() string { return "member-auth" }

// Pre performs the authentication check, then redirects users with an
// unverified email to the verification page when that is required.
func (f *MemberAuthenticationFilter) Pre(ctx *Context) Result {
	user, result := f.inner.authenticate(ctx)
	if _, stop := result.ShortCircuit(); stop {
		return result
	}

	if f.requireVerified && !user.EmailVerified {
		return Terminal(Redirect(f.verifyURL))
	}
	return Continue
}
