package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-autopilot/framework/autopilot"
	gohttp "github.com/km-arc/go-autopilot/framework/http"
)

// Router wraps chi.Router with Laravel-style helpers and resolves controllers
// from the container.
type Router struct {
	mux   chi.Router
	app   *autopilot.Container
	debug bool
}

// New creates a Router with sane defaults (RequestID, RealIP, Recoverer)
// followed by mw. app is used by the controller helpers; it may be nil when
// none are registered.
func New(app *autopilot.Container, debug bool, mw ...func(http.Handler) http.Handler) *Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(mw...)
	return &Router{mux: r, app: app, debug: debug}
}

func (r *Router) sub(mx chi.Router) *Router {
	return &Router{mux: mx, app: r.app, debug: r.debug}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Mount attaches h under pattern, e.g. the metrics handler.
func (r *Router) Mount(pattern string, h http.Handler) { r.mux.Mount(pattern, h) }

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group. Laravel: Route::group([], fn)
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(r.sub(mx))
	})
}

// Prefix creates a sub-router with a URL prefix. Laravel: Route::prefix('/api')
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(r.sub(mx))
	})
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Resource routes ──────────────────────────────────────────────────────────

// ResourceController handles the standard RESTful routes of a resource.
//
//	GET    /photos           → c.Index
//	POST   /photos           → c.Store
//	GET    /photos/{id}      → c.Show
//	PUT    /photos/{id}      → c.Update
//	DELETE /photos/{id}      → c.Destroy
type ResourceController interface {
	Index(w http.ResponseWriter, r *http.Request)
	Store(w http.ResponseWriter, r *http.Request)
	Show(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Destroy(w http.ResponseWriter, r *http.Request)
}

// Resource registers the RESTful routes of one controller instance.
func (r *Router) Resource(pattern string, c ResourceController) {
	r.mux.Get(pattern, c.Index)
	r.mux.Post(pattern, c.Store)
	r.mux.Get(pattern+"/{id}", c.Show)
	r.mux.Put(pattern+"/{id}", c.Update)
	r.mux.Patch(pattern+"/{id}", c.Update)
	r.mux.Delete(pattern+"/{id}", c.Destroy)
}

// ResolvedResource is Resource with the controller resolved from the
// container on every request. Use a Transient reference for a fresh
// controller per request, a Singleton one to share it.
//
//	router.ResolvedResource("/photos", autopilot.MustParse("PhotoController"))
func (r *Router) ResolvedResource(pattern string, ref autopilot.Reference) {
	action := func(pick func(ResourceController) http.HandlerFunc) http.HandlerFunc {
		return Controller(r.app, ref, r.debug, func(c ResourceController, w http.ResponseWriter, req *http.Request) {
			pick(c)(w, req)
		})
	}
	r.mux.Get(pattern, action(func(c ResourceController) http.HandlerFunc { return c.Index }))
	r.mux.Post(pattern, action(func(c ResourceController) http.HandlerFunc { return c.Store }))
	r.mux.Get(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Show }))
	r.mux.Put(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Update }))
	r.mux.Patch(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Update }))
	r.mux.Delete(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Destroy }))
}

// Controller returns a handler that resolves ref per request and passes the
// controller to action. Method expressions fit action directly:
//
//	router.Get("/reports", routing.Controller(app, reportRef, debug, (*ReportController).Index))
//
// A failed resolution answers 500 through Response.ResolveError.
func Controller[T any](app *autopilot.Container, ref autopilot.Reference, debug bool, action func(T, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if app == nil {
			gohttp.NewResponse(w).ServerError("no container bound to the router")
			return
		}
		ctrl, err := autopilot.Resolve[T](app, ref)
		if err != nil {
			gohttp.NewResponse(w).ResolveError(err, debug)
			return
		}
		action(ctrl, w, req)
	}
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param, equivalent to $request->route('id')
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.ListenAndServe.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}
