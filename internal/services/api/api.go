// Package api composes service modules into the HTTP API
package api

import (
	"context"
	"database/sql"
	"net/http"

	"ottscout/internal/modkit"
	"ottscout/internal/modkit/httpkit"
	"ottscout/internal/modkit/repokit"
	"ottscout/internal/modkit/swaggerkit"
	"ottscout/internal/platform/logger"
	phttp "ottscout/internal/platform/net/http"
	"ottscout/internal/platform/store"
)

// Options are the API options
type Options struct {
	Modules []modkit.Module
	// Store and Lite are probed by /healthz; both may be nil
	Store *store.Store
	Lite  *sql.DB

	Stack          httpkit.StackOptions
	Docs           []byte
	EnableSwagger  bool
	EnableProfiler bool
}

// Health is the /healthz body
type Health struct {
	Status   string            `json:"status"`
	Backends map[string]string `json:"backends,omitempty"`
}

// Mount mounts health, docs, profiler and every module under /api/v1
func Mount(r phttp.Router, opt Options) {
	stack := opt.Stack
	stack.QuietPaths = append(stack.QuietPaths, "/healthz")

	r.Group(func(root httpkit.Router) {
		root.Use(httpkit.Stack(stack)...)
		httpkit.Get(root, "/healthz", health(backends(opt.Store, opt.Lite)))
	})
	swaggerkit.Mount(r, opt.EnableSwagger, opt.Docs)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPIV1(r, httpkit.Stack(stack), func(api httpkit.Router) {
		for _, m := range opt.Modules {
			m.MountRoutes(api)
			logger.Named("api").Debug().Str("module", m.Name()).Msg("module mounted")
		}
	})
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// backends lists the configured stores that can be probed
func backends(st *store.Store, lite *sql.DB) map[string]repokit.Pinger {
	out := map[string]repokit.Pinger{}
	if st != nil {
		if p, ok := st.PG.(repokit.Pinger); ok {
			out["postgres"] = p
		}
		if p, ok := st.CH.(repokit.Pinger); ok {
			out["clickhouse"] = p
		}
	}
	if lite != nil {
		out["sqlite"] = pingFunc(lite.PingContext)
	}
	return out
}

// health pings each backend; any failure turns the probe into a 503
func health(pingers map[string]repokit.Pinger) func(*http.Request) (any, error) {
	return func(r *http.Request) (any, error) {
		h := Health{Status: "ok", Backends: map[string]string{}}
		var firstErr error
		for name, p := range pingers {
			if err := repokit.Ping(r.Context(), name, p); err != nil {
				h.Backends[name] = "down"
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			h.Backends[name] = "up"
		}
		if firstErr != nil {
			return nil, firstErr
		}
		return h, nil
	}
}
