// Package httpkit is the routing surface modules mount endpoints with
// Modules import this rather than the platform http package
package httpkit

import (
	"net/http"
	"strings"
	"time"

	phttp "ottscout/internal/platform/net/http"
	"ottscout/internal/platform/net/middleware"
)

type (
	// Router is the platform router seam
	Router = phttp.Router
	// Handler is the platform handler type
	Handler = phttp.Handler
	// Response is what return-style handlers produce
	Response = phttp.Response
	// Envelope is the response body wire
	Envelope = phttp.Envelope
)

// OK returns a 200 response
func OK(data any) Response { return phttp.OK(data) }

// Created returns a 201 response
func Created(data any) Response { return phttp.Created(data) }

// Error maps err onto a status and error envelope
func Error(err error) Response { return phttp.Error(err) }

// List returns a 200 response carrying list metadata
func List(items any, total, limit int) Response { return phttp.List(items, total, limit) }

// StackOptions tunes the API middleware stack
type StackOptions struct {
	Timeout     time.Duration
	SlowRequest time.Duration
	CORSOrigins []string
	// QuietPaths are served but not access logged
	QuietPaths []string
}

// Stack is the middleware every API router gets, outermost first
func Stack(o StackOptions) []func(http.Handler) http.Handler {
	out := middleware.Defaults(o.Timeout)
	out = append(out, middleware.AccessLogZerolog(middleware.AccessLogOptions{
		Slow: o.SlowRequest,
		Skip: o.QuietPaths,
	}))
	if len(o.CORSOrigins) > 0 {
		out = append(out, middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins}))
	}
	return out
}

// MountUnder mounts a subrouter at prefix with its own middleware
func MountUnder(r Router, prefix string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route(prefix, func(sub Router) {
		if len(mw) > 0 {
			sub.Use(mw...)
		}
		mount(sub)
	})
}

// MountAPI mounts a subrouter under /api/{version}
func MountAPI(r Router, version string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountUnder(r, "/api/"+strings.TrimPrefix(version, "/"), mw, mount)
}

// MountAPIV1 is MountAPI for v1
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountAPI(r, "v1", mw, mount)
}

// Get mounts a handler that needs only the request
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.PlainHandler(h))
}

// GetQuery mounts a handler whose input is bound from the query string
func GetQuery[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Get(path, phttp.QueryHandler(h))
}

// Post mounts a body-less POST handler
func Post(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, phttp.PlainHandler(h))
}
