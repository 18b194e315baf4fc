package filter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubFilter records hook invocations and optionally short-circuits.
type stubFilter struct {
	name     string
	terminal *Response
	preRan   *[]string
	postRan  *[]string
}

func (f *stubFilter) Name() string { return f.name }

func (f *stubFilter) Pre(ctx *Context) Result {
	*f.preRan = append(*f.preRan, f.name)
	if f.terminal != nil {
		return Terminal(f.terminal)
	}
	return Continue
}

func (f *stubFilter) Post(ctx *Context, resp *Response) {
	*f.postRan = append(*f.postRan, f.name)
}

// postOnlyFilter has no pre-hook at all.
type postOnlyFilter struct {
	name   string
	header string
	value  string
}

func (f *postOnlyFilter) Name() string { return f.name }

func (f *postOnlyFilter) Post(ctx *Context, resp *Response) {
	resp.Header.Set(f.header, f.value)
}

func newTestRouter(filters ...Filter) *Router {
	registry := NewRegistry()
	for _, f := range filters {
		registry.Register(f)
	}
	return NewRouter(registry)
}

func TestChainRunsInOrder(t *testing.T) {
	var pre, post []string
	f1 := &stubFilter{name: "one", preRan: &pre, postRan: &post}
	f2 := &stubFilter{name: "two", preRan: &pre, postRan: &post}

	handlerRan := false
	router := newTestRouter(f1, f2)
	router.HandleFunc("/x", []string{"one", "two"}, func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !handlerRan {
		t.Fatal("handler did not run")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	wantOrder := []string{"one", "two"}
	for i, name := range wantOrder {
		if pre[i] != name || post[i] != name {
			t.Fatalf("hook order pre=%v post=%v, want %v for both", pre, post, wantOrder)
		}
	}
}

func TestChainShortCircuitStopsEverything(t *testing.T) {
	var pre, post []string
	blocking := &stubFilter{
		name:     "blocker",
		terminal: Text(http.StatusServiceUnavailable, "down"),
		preRan:   &pre,
		postRan:  &post,
	}
	after := &stubFilter{name: "after", preRan: &pre, postRan: &post}

	handlerRan := false
	router := newTestRouter(blocking, after)
	router.HandleFunc("/x", []string{"blocker", "after"}, func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if handlerRan {
		t.Error("handler ran despite short-circuit")
	}
	if len(pre) != 1 || pre[0] != "blocker" {
		t.Errorf("pre hooks ran = %v, want only the blocker", pre)
	}
	if len(post) != 0 {
		t.Errorf("post hooks ran = %v, want none after short-circuit", post)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestChainPostHookAugmentsResponse(t *testing.T) {
	router := newTestRouter(&postOnlyFilter{name: "decorate", header: "X-Decorated", value: "yes"})
	router.HandleFunc("/x", []string{"decorate"}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("body"))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "body" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "body")
	}
	if rec.Header().Get("X-Decorated") != "yes" {
		t.Error("post hook header missing")
	}
}

func TestChainUnknownFilterFailsClosed(t *testing.T) {
	handlerRan := false
	router := newTestRouter()
	router.HandleFunc("/x", []string{"missing"}, func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if handlerRan {
		t.Error("handler ran despite unresolved filter")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

type panickyFilter struct {
	name string
	pre  bool
}

func (f *panickyFilter) Name() string { return f.name }

func (f *panickyFilter) Pre(ctx *Context) Result {
	if f.pre {
		panic("pre boom")
	}
	return Continue
}

func (f *panickyFilter) Post(ctx *Context, resp *Response) {
	if !f.pre {
		panic("post boom")
	}
}

func TestChainRecoversPreHookPanic(t *testing.T) {
	handlerRan := false
	router := newTestRouter(&panickyFilter{name: "boom", pre: true})
	router.HandleFunc("/x", []string{"boom"}, func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if handlerRan {
		t.Error("handler ran despite pre-hook panic")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestChainRecoversPostHookPanic(t *testing.T) {
	router := newTestRouter(&panickyFilter{name: "boom", pre: false})
	router.HandleFunc("/x", []string{"boom"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("made it"))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	// A failing post-hook must not block the handler's response.
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if rec.Body.String() != "made it" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "made it")
	}
}

func TestChainSetsRequestID(t *testing.T) {
	var seen string
	router := newTestRouter()
	router.HandleFunc("/x", nil, func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if seen == "" {
		t.Error("handler saw no request ID")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID = %q, want %q", got, seen)
	}
}

func TestRegistryResolvePreservesOrder(t *testing.T) {
	var pre, post []string
	registry := NewRegistry()
	registry.Register(&stubFilter{name: "a", preRan: &pre, postRan: &post})
	registry.Register(&stubFilter{name: "b", preRan: &pre, postRan: &post})

	filters, err := registry.Resolve([]string{"b", "a", "b"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := []string{filters[0].Name(), filters[1].Name(), filters[2].Name()}
	want := []string{"b", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resolved order = %v, want %v", got, want)
		}
	}

	if _, err := registry.Resolve([]string{"a", "nope"}); err == nil {
		t.Error("expected error for unknown filter name")
	}
}
