package filter

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Router associates routes with ordered filter-name lists and executes the
// chain around each route's handler. Dispatch itself is delegated to a
// stdlib ServeMux; the router only contributes the gating pipeline.
type Router struct {
	mux      *http.ServeMux
	registry *Registry
}

// NewRouter creates a router backed by the given filter registry.
func NewRouter(registry *Registry) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		registry: registry,
	}
}

// Handle registers a route with an ordered list of filter names. Filters
// run in list order: pre-hooks first to last, then the handler, then
// post-hooks first to last.
func (rt *Router) Handle(pattern string, filterNames []string, handler http.Handler) {
	names := append([]string(nil), filterNames...)
	rt.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rt.execute(w, r, names, handler)
	})
}

// HandleFunc registers a handler function with an ordered list of filter
// names.
func (rt *Router) HandleFunc(pattern string, filterNames []string, handler http.HandlerFunc) {
	rt.Handle(pattern, filterNames, handler)
}

// ServeHTTP dispatches the request through the underlying mux.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// execute runs the filter chain for one request. Pre-hooks run in
// registration order and the first short-circuit wins: later pre-hooks, the
// handler, and all post-hooks are skipped and the terminal response is
// delivered as-is. Otherwise the handler runs into a buffered response and
// every post-hook gets to augment it before it is flushed.
func (rt *Router) execute(w http.ResponseWriter, r *http.Request, filterNames []string, handler http.Handler) {
	ctx := &Context{
		RequestID: uuid.NewString(),
		Request:   r,
		RoutePath: r.URL.Path,
		Start:     time.Now(),
	}

	filters, err := rt.registry.Resolve(filterNames)
	if err != nil {
		// A route naming an unregistered filter is a wiring bug; fail closed.
		log.Printf("filter: request_id=%s path=%s %v", ctx.RequestID, ctx.RoutePath, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	for _, f := range filters {
		pre, ok := f.(PreFilter)
		if !ok {
			continue
		}
		if resp, stop := rt.runPre(f.Name(), pre, ctx).ShortCircuit(); stop {
			resp.Header.Set("X-Request-ID", ctx.RequestID)
			resp.WriteTo(w)
			return
		}
	}

	resp := NewResponse()
	bw := &bufferedWriter{resp: resp}
	handler.ServeHTTP(bw, ctx.handlerRequest())

	for _, f := range filters {
		if post, ok := f.(PostFilter); ok {
			rt.runPost(f.Name(), post, ctx, resp)
		}
	}

	resp.Header.Set("X-Request-ID", ctx.RequestID)
	resp.WriteTo(w)
}

// runPre invokes a pre-hook, converting a panic into a terminal 500 so no
// failure inside a filter can escape the chain.
func (rt *Router) runPre(name string, pre PreFilter, ctx *Context) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("filter: pre-hook panic in %q request_id=%s path=%s: %v", name, ctx.RequestID, ctx.RoutePath, rec)
			result = Terminal(Text(http.StatusInternalServerError, "Internal Server Error"))
		}
	}()
	return pre.Pre(ctx)
}

// runPost invokes a post-hook. A failing post-hook is logged and the
// response continues unchanged; header decoration is never worth blocking
// a response over.
func (rt *Router) runPost(name string, post PostFilter, ctx *Context, resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("filter: post-hook panic in %q request_id=%s path=%s: %v", name, ctx.RequestID, ctx.RoutePath, rec)
		}
	}()
	post.Post(ctx, resp)
}

// bufferedWriter adapts a *Response to http.ResponseWriter so ordinary
// handlers can be used as route handlers.
type bufferedWriter struct {
	resp        *Response
	wroteHeader bool
}

func (w *bufferedWriter) Header() http.Header {
	return w.resp.Header
}

func (w *bufferedWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.resp.StatusCode = status
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.resp.Body.Write(b)
}
