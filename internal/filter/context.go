package filter

import (
	"context"
	"net/http"
	"time"

	"github.com/quillcms/quill/internal/auth"
)

// Context is the request-scoped state threaded through one chain execution.
// Filters publish what they resolve (client IP, session, user) here instead
// of into any process-wide registry, so nothing leaks across requests.
type Context struct {
	// RequestID identifies this request in logs.
	RequestID string

	// Request is the inbound request.
	Request *http.Request

	// RoutePath is the matched route's path, used in log messages.
	RoutePath string

	// Start is when chain execution began, set by the router.
	Start time.Time

	// ClientIP is the resolved client address, set by the first filter that
	// resolves it.
	ClientIP string

	// Session is the request's session, set by filters that look it up.
	Session *auth.Session

	// User is the authenticated user, set by the authentication filters.
	User *auth.User
}

// Context key type for handler-visible values
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"

	// RequestIDContextKey is the context key for the request ID.
	RequestIDContextKey contextKey = "request_id"
)

// GetUserFromContext retrieves the authenticated user from a request
// context. Returns nil when no filter published one.
func GetUserFromContext(ctx context.Context) *auth.User {
	user, ok := ctx.Value(UserContextKey).(*auth.User)
	if !ok {
		return nil
	}
	return user
}

// GetRequestIDFromContext retrieves the request ID from a request context.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// handlerRequest returns the request the route handler should see, with the
// chain's resolved values published into its context.
func (c *Context) handlerRequest() *http.Request {
	ctx := context.WithValue(c.Request.Context(), RequestIDContextKey, c.RequestID)
	if c.User != nil {
		ctx = context.WithValue(ctx, UserContextKey, c.User)
	}
	return c.Request.WithContext(ctx)
}
