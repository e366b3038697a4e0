package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ottscout/internal/modkit"
	"ottscout/internal/modkit/httpkit"
	"ottscout/internal/modkit/repokit"
	phttp "ottscout/internal/platform/net/http"
	"ottscout/internal/platform/store/lite"

	"github.com/go-chi/chi/v5"
)

type echoModule struct{}

func (echoModule) Name() string { return "echo" }
func (echoModule) Ports() any   { return nil }
func (echoModule) MountRoutes(r httpkit.Router) {
	httpkit.Get(r, "/echo", func(*http.Request) (any, error) { return "hi", nil })
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMount(t *testing.T) {
	db, err := lite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	r := phttp.AdaptChi(chi.NewRouter())
	Mount(r, Options{Modules: []modkit.Module{echoModule{}}, Lite: db, EnableSwagger: true, Docs: []byte(`{"paths":{}}`)})
	h := r.Mux()

	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data Health `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Data.Backends["sqlite"] != "up" {
		t.Fatalf("health = %+v %v", env, err)
	}
	if rec := get(t, h, "/api/v1/echo"); rec.Code != http.StatusOK || rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("echo = %d %v", rec.Code, rec.Header())
	}
	if rec := get(t, h, "/api/docs/doc.json"); rec.Code != http.StatusOK {
		t.Fatalf("docs = %d", rec.Code)
	}
	if rec := get(t, h, "/debug/pprof/"); rec.Code != http.StatusNotFound {
		t.Fatalf("profiler should be off, got %d", rec.Code)
	}

	_ = db.Close()
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz after close = %d", rec.Code)
	}
}

func TestHealth_NoBackends(t *testing.T) {
	out, err := health(backends(nil, nil))(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if err != nil || out.(Health).Status != "ok" {
		t.Fatalf("out = %v err = %v", out, err)
	}
	down := map[string]repokit.Pinger{"postgres": pingFunc(func(context.Context) error { return errors.New("refused") })}
	if _, err := health(down)(httptest.NewRequest(http.MethodGet, "/healthz", nil)); err == nil {
		t.Fatal("down backend should fail the probe")
	}
}
