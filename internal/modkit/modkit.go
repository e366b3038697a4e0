// Package modkit wires service modules onto the shared backends and the API router
package modkit

import (
	"database/sql"
	"net/http"
	"reflect"

	"ottscout/internal/modkit/httpkit"
	"ottscout/internal/platform/config"
	"ottscout/internal/platform/logger"
	"ottscout/internal/platform/store"
	pstrings "ottscout/internal/platform/strings"
)

// Module is what a service hands to the binaries
type Module interface {
	// MountRoutes registers the module's endpoints on r
	MountRoutes(r httpkit.Router)
	// Ports returns the module's port bundle for the binaries to call into
	Ports() any
	Name() string
}

// Deps are the shared backends a module may use; every field is optional
type Deps struct {
	Log   logger.Logger
	Cfg   config.Conf
	Store *store.Store
	Lite  *sql.DB
}

// PG returns the postgres seam or nil
func (d Deps) PG() store.TxRunner {
	if d.Store == nil {
		return nil
	}
	return d.Store.PG
}

// CH returns the clickhouse seam or nil
func (d Deps) CH() store.Clickhouse {
	if d.Store == nil {
		return nil
	}
	return d.Store.CH
}

// Option mutates module build settings
type Option func(*Built)

// Built is the resolved module settings
type Built struct {
	Name      string
	Prefix    string
	Mw        []func(http.Handler) http.Handler
	SwaggerOn bool
}

// WithName sets the name used in logs
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix mounts the module under prefix
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends per module middleware in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithSwagger toggles the docs UI
func WithSwagger(on bool) Option { return func(b *Built) { b.SwaggerOn = on } }

// Build resolves opts over defaults
func Build(defaults Built, opts ...Option) Built {
	b := defaults
	b.Mw = append([]func(http.Handler) http.Handler(nil), defaults.Mw...)
	for _, o := range opts {
		o(&b)
	}
	if b.Prefix != "" {
		b.Prefix = pstrings.MustPrefix(b.Prefix)
	}
	return b
}

// PortsOf finds a T in m's ports, either the bundle itself or one of its exported fields
func PortsOf[T any](m Module) (T, bool) {
	var zero T
	p := m.Ports()
	if p == nil {
		return zero, false
	}
	if v, ok := p.(T); ok {
		return v, true
	}
	rv := reflect.ValueOf(p)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return zero, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return zero, false
	}
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if v, ok := f.Interface().(T); ok {
			return v, true
		}
	}
	return zero, false
}

// MustPortsOf is PortsOf that panics when the port is missing
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	panic("modkit: requested port not found on module " + m.Name())
}
