package server

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRouteTableFrozen is returned when a route is registered after the
// server has started accepting connections.
var ErrRouteTableFrozen = errors.New("route table is frozen")

// Route is one entry of the route table. An empty Method matches any method.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Router dispatches requests by exact path and, where a route names one,
// method. Requests that match no route go to the not-found handler.
//
// Routes are registered once at startup. After Freeze the table is
// immutable.
type Router struct {
	routes   []Route
	notFound http.HandlerFunc
	frozen   bool
}

// NewRouter creates an empty router whose not-found handler is http.NotFound.
func NewRouter() *Router {
	return &Router{notFound: http.NotFound}
}

// Handle registers a handler for path, for any method.
func (r *Router) Handle(path string, h http.HandlerFunc) error {
	return r.HandleMethod("", path, h)
}

// HandleMethod registers a handler for method and path.
func (r *Router) HandleMethod(method, path string, h http.HandlerFunc) error {
	if r.frozen {
		return ErrRouteTableFrozen
	}
	if h == nil {
		return fmt.Errorf("nil handler for %s", path)
	}
	for _, existing := range r.routes {
		if existing.Path == path && existing.Method == method {
			return fmt.Errorf("duplicate route: %s %s", methodLabel(method), path)
		}
	}
	r.routes = append(r.routes, Route{Method: method, Path: path, Handler: h})
	return nil
}

// NotFound sets the handler for unmatched requests.
func (r *Router) NotFound(h http.HandlerFunc) error {
	if r.frozen {
		return ErrRouteTableFrozen
	}
	if h == nil {
		return fmt.Errorf("nil not-found handler")
	}
	r.notFound = h
	return nil
}

// Freeze makes the route table immutable.
func (r *Router) Freeze() {
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Router) Frozen() bool {
	return r.frozen
}

// Routes returns a copy of the route table.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Match returns the handler for a request method and path, and whether a
// route matched.
func (r *Router) Match(method, path string) (http.HandlerFunc, bool) {
	for _, route := range r.routes {
		if route.Path != path {
			continue
		}
		if route.Method == "" || route.Method == method {
			return route.Handler, true
		}
	}
	return r.notFound, false
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h, _ := r.Match(req.Method, req.URL.Path)
	h(w, req)
}

func methodLabel(method string) string {
	if method == "" {
		return "ANY"
	}
	return method
}
