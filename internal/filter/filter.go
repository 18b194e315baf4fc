// Package filter implements Quill's request-gating pipeline: named filters
// with optional pre and post hooks, a registry resolving filter names to
// instances, and a chain executor that runs pre-hooks before the route
// handler and post-hooks after it.
//
// Pre-hooks communicate through tagged results rather than writing to the
// network: a hook either continues the chain or returns a terminal response
// that the executor delivers. Post-hooks may only augment the buffered
// response, typically by adding headers.
package filter

import (
	"bytes"
	"fmt"
	"net/http"
)

// Filter is a named unit attachable to routes. Concrete filters implement
// PreFilter, PostFilter, or both.
type Filter interface {
	Name() string
}

// PreFilter runs before the route handler and may short-circuit the chain.
type PreFilter interface {
	Filter
	Pre(ctx *Context) Result
}

// PostFilter runs after the route handler and augments the outgoing
// response. It must not replace the handler's status or body.
type PostFilter interface {
	Filter
	Post(ctx *Context, resp *Response)
}

// Result is the outcome of a pre-hook: either continue to the next filter
// or short-circuit with a terminal response.
type Result struct {
	response *Response
}

// Continue is the result that lets chain execution proceed.
var Continue = Result{}

// Terminal produces a result that stops the chain and delivers resp.
func Terminal(resp *Response) Result {
	return Result{response: resp}
}

// ShortCircuit returns the terminal response and whether the chain must
// stop.
func (r Result) ShortCircuit() (*Response, bool) {
	return r.response, r.response != nil
}

// Response is a fully buffered HTTP response. Handlers write into one via
// the chain's ResponseWriter wrapper, so post-hooks can still append
// headers after the handler has finished.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       bytes.Buffer
}

// NewResponse creates an empty response with status 200.
func NewResponse() *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
	}
}

// Text builds a plain-text response.
func Text(status int, msg string) *Response {
	resp := NewResponse()
	resp.StatusCode = status
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(&resp.Body, msg)
	return resp
}

// HTML builds an HTML response.
func HTML(status int, body string) *Response {
	resp := NewResponse()
	resp.StatusCode = status
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	resp.Body.WriteString(body)
	return resp
}

// Redirect builds a 302 redirect response.
func Redirect(url string) *Response {
	resp := NewResponse()
	resp.StatusCode = http.StatusFound
	resp.Header.Set("Location", url)
	return resp
}

// WriteTo flushes the buffered response to the real writer.
func (r *Response) WriteTo(w http.ResponseWriter) {
	for name, values := range r.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(r.StatusCode)
	_, _ = w.Write(r.Body.Bytes())
}
