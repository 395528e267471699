package api

import (
	"context"
	"log/slog"
	"strings"
)

// Request contains route parameters and additional args from the command.
type Request struct {
	Ctx     context.Context
	Params  map[string]string
	Payload string
}

// Response holds the JSON string to return to the client.
type Response struct {
	JSON string
}

// HandlerFunc processes a request and populates the response.
// The logger provided is a connection-scoped logger enriched with remote
// address metadata by the API server.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// Router implements simple path pattern matching with placeholders in {name}.
type Router struct {
	routes []routeEntry
}

type routeEntry struct {
	parts    []string
	original []string
	handler  HandlerFunc
}

// NewRouter returns a new Router instance.
func NewRouter() *Router { return &Router{} }

// Register registers a handler for a path pattern like "controllers/{id}/kick".
func (r *Router) Register(pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, routeEntry{
		parts:    strings.Split(strings.ToLower(pattern), "/"),
		original: strings.Split(pattern, "/"),
		handler:  handler,
	})
}

// Match returns the HandlerFunc and params if the given path matches any
// registered pattern. Returns nil if none match.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	parts := strings.Split(strings.ToLower(path), "/")
	for _, rt := range r.routes {
		if params, ok := rt.match(parts); ok {
			return rt.handler, params
		}
	}
	return nil, nil
}

// Paths lists the registered patterns in registration order.
func (r *Router) Paths() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, strings.Join(rt.original, "/"))
	}
	return out
}

func (rt routeEntry) match(parts []string) (map[string]string, bool) {
	if len(rt.parts) != len(parts) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range rt.parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			name := rt.original[i][1 : len(rt.original[i])-1]
			params[name] = parts[i]
			continue
		}
		if p != parts[i] {
			return nil, false
		}
	}
	return params, true
}
