// Package http exposes persisted runs and on demand runs over the API
package http

import (
	_ "embed"
	stdhttp "net/http"
	"sync"

	"ottscout/internal/modkit/httpkit"
	perr "ottscout/internal/platform/errors"
	"ottscout/internal/services/releases/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OpenAPI is the document served by the docs UI
//
//go:embed openapi.json
var OpenAPI []byte

// DefaultLimit and MaxLimit bound GET /runs
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListInput is the query of GET /runs
type ListInput struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// RowsInput is the query of the rows endpoints
type RowsInput = domain.RowFilter

// Register mounts the runs endpoints; query may be nil when no store is configured
func Register(r httpkit.Router, runner domain.RunnerPort, query domain.QueryPort) {
	h := &handlers{runner: runner, query: query}

	httpkit.GetQuery(r, "/", h.list)
	httpkit.Post(r, "/", h.run)
	httpkit.Get(r, "/latest", h.latest)
	httpkit.GetQuery(r, "/latest/rows", h.latestRows)
	httpkit.GetQuery(r, "/{id}/rows", h.rows)
}

type handlers struct {
	runner domain.RunnerPort
	query  domain.QueryPort

	// one pipeline run at a time
	running sync.Mutex
}

func (h *handlers) store() (domain.QueryPort, error) {
	if h.query == nil {
		return nil, perr.Unavailablef("no run store configured")
	}
	return h.query, nil
}

// @Summary List recent runs
// @Tags Runs
// @Produce json
// @Param limit query int false "max runs, 1..100"
// @Router /runs [get]
func (h *handlers) list(r *stdhttp.Request, in ListInput) (any, error) {
	q, err := h.store()
	if err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	runs, err := q.ListRuns(r.Context(), limit)
	if err != nil {
		return nil, err
	}
	return httpkit.List(runs, len(runs), limit), nil
}

// @Summary Run the pipeline now and persist the result
// @Tags Runs
// @Produce json
// @Router /runs [post]
func (h *handlers) run(r *stdhttp.Request) (any, error) {
	if !h.running.TryLock() {
		return nil, perr.Unavailablef("a run is already in progress")
	}
	defer h.running.Unlock()

	rep, err := h.runner.Run(r.Context())
	if err != nil {
		return nil, err
	}
	return httpkit.Created(rep), nil
}

// @Summary Latest persisted run
// @Tags Runs
// @Produce json
// @Router /runs/latest [get]
func (h *handlers) latest(r *stdhttp.Request) (any, error) {
	q, err := h.store()
	if err != nil {
		return nil, err
	}
	return q.LatestRun(r.Context())
}

// @Summary Rows of the latest run
// @Tags Runs
// @Produce json
// @Param region query string false "two letter region"
// @Param platform query string false "canonical platform"
// @Param language query string false "language name"
// @Router /runs/latest/rows [get]
func (h *handlers) latestRows(r *stdhttp.Request, in RowsInput) (any, error) {
	q, err := h.store()
	if err != nil {
		return nil, err
	}
	run, err := q.LatestRun(r.Context())
	if err != nil {
		return nil, err
	}
	return h.listRows(r, q, run.RunID, in)
}

// @Summary Rows of one run
// @Tags Runs
// @Produce json
// @Param id path string true "run id"
// @Router /runs/{id}/rows [get]
func (h *handlers) rows(r *stdhttp.Request, in RowsInput) (any, error) {
	q, err := h.store()
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, perr.WithField(perr.InvalidArgf("run id is not a uuid"), "id")
	}
	return h.listRows(r, q, id, in)
}

func (h *handlers) listRows(r *stdhttp.Request, q domain.QueryPort, id uuid.UUID, f RowsInput) (any, error) {
	rows, err := q.Rows(r.Context(), id, f)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.CanonicalRow{}
	}
	return httpkit.List(rows, len(rows), len(rows)), nil
}
