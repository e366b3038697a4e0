package http

import (
	"net/http"

	"ottscout/internal/platform/net/http/bind"
)

// result turns a handler's output into a Response, passing Responses through
func result(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return OK(out)
}

// QueryHandler binds and validates query parameters into T before calling fn
func QueryHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.Query[T](r)
		if err != nil {
			return Error(err)
		}
		return result(fn(r, in))
	})
}

// PlainHandler calls fn with the bare request
func PlainHandler(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		return result(fn(r))
	})
}
