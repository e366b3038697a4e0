// Package module wires the releases pipeline, its sinks and its routes
package module

import (
	"net/http"
	"strings"

	"ottscout/internal/adapters/ingest/ottdetails"
	"ottscout/internal/adapters/ingest/ratings"
	"ottscout/internal/adapters/ingest/streaming"
	"ottscout/internal/adapters/ingest/upstream"
	"ottscout/internal/core/catalog"
	"ottscout/internal/modkit"
	"ottscout/internal/modkit/httpkit"
	"ottscout/internal/platform/logger"
	dom "ottscout/internal/services/releases/domain"
	releaseshttp "ottscout/internal/services/releases/http"
	"ottscout/internal/services/releases/paginate"
	"ottscout/internal/services/releases/repo"
	"ottscout/internal/services/releases/service"
)

// Ports exposed by the releases module
type Ports struct {
	Runner dom.RunnerPort
	// Query is nil when neither Postgres nor SQLite is configured
	Query dom.QueryPort
}

// Module implements modkit.Module for the releases pipeline
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler

	opts   Options
	policy catalog.Policy
	ports  Ports
	sinks  []dom.SinkPort
}

// New validates the options in deps.Cfg and builds the pipeline
// A missing catalog key is a MissingCredential error
func New(deps modkit.Deps, mopts ...modkit.Option) (*Module, error) {
	b := modkit.Build(modkit.Built{Name: "releases", Prefix: "/runs"}, mopts...)
	log := logger.Named(b.Name)

	o := FromConfig(deps.Cfg)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	policy, err := o.Policy()
	if err != nil {
		return nil, err
	}

	src, details := newSource(o)
	lookup := newRatings(o, details, log)
	sinks, query := newSinks(deps, o)

	svc := service.New(src, lookup, policy, sinks, service.Config{
		Regions:     o.regions(),
		Catalogs:    o.Catalogs,
		Lookback:    o.Lookback,
		RegionDelay: o.RegionDelay,
		DetailDelay: o.DetailDelay,
	})

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	log.Info().
		Str("source", src.Name()).
		Str("ratings", o.RatingsProvider).
		Bool("ratings_enabled", lookup != nil).
		Strs("regions", o.Regions).
		Strs("sinks", names).
		Msg("releases module ready")

	return &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		opts:   o,
		policy: policy,
		sinks:  sinks,
		ports:  Ports{Runner: svc, Query: query},
	}, nil
}

// newSource builds the configured catalog upstream and its paginator
// The OTT Details client is returned too so it can double as the ratings lookup
func newSource(o Options) (dom.Source, *ottdetails.Client) {
	pcfg := paginate.Config{MaxPages: o.MaxPages, PageDelay: o.PageDelay}
	switch o.Source {
	case SourceStreaming:
		host := orDefault(o.CatalogHost, streaming.DefaultHost)
		c := upstream.NewClient(o.upstreamOptions(SourceStreaming, orDefault(o.CatalogURL, "https://"+host)))
		return paginate.NewCursor(streaming.New(c, o.CatalogKey, host), pcfg), nil
	default:
		details := newDetails(o)
		return paginate.NewOffset(details, pcfg), details
	}
}

func newDetails(o Options) *ottdetails.Client {
	base, host := detailsEndpoint(o)
	c := upstream.NewClient(o.upstreamOptions(SourceOTTDetails, base))
	return ottdetails.New(c, o.CatalogKey, host)
}

// detailsEndpoint honours the catalog overrides only when OTT Details is the catalog
func detailsEndpoint(o Options) (baseURL, host string) {
	if o.Source != SourceOTTDetails {
		return "https://" + ottdetails.DefaultHost, ottdetails.DefaultHost
	}
	host = orDefault(o.CatalogHost, ottdetails.DefaultHost)
	return orDefault(o.CatalogURL, "https://"+host), host
}

// newRatings returns nil when enrichment cannot run; the service then skips it
func newRatings(o Options, details *ottdetails.Client, log *logger.Logger) dom.RatingLookup {
	switch o.RatingsProvider {
	case RatingsOMDb:
		if strings.TrimSpace(o.RatingsKey) == "" {
			log.Warn().Msg("OTTSCOUT_RATINGS_API_KEY not set, ratings disabled")
			return nil
		}
		c := upstream.NewClient(o.upstreamOptions(RatingsOMDb, orDefault(o.RatingsURL, ratings.DefaultBaseURL)))
		return ratings.NewOMDb(c, o.RatingsKey)
	case RatingsOTTDetails:
		if details == nil {
			details = newDetails(o)
		}
		return details
	default:
		return nil
	}
}

// newSinks wires every configured store; Postgres answers queries before SQLite
func newSinks(deps modkit.Deps, o Options) ([]dom.SinkPort, dom.QueryPort) {
	var (
		sinks []dom.SinkPort
		query dom.QueryPort
	)
	if pg := deps.PG(); pg != nil {
		s := repo.NewPGSink(pg, repo.NewPG(), repo.PGConfig{
			Attempts:         o.SaveAttempts,
			StatementTimeout: o.StatementTimeout,
		})
		sinks, query = append(sinks, s), s
	}
	if ch := deps.CH(); ch != nil {
		sinks = append(sinks, repo.NewCHSink(ch))
	}
	if deps.Lite != nil {
		s := repo.NewLiteSink(deps.Lite)
		sinks = append(sinks, s)
		if query == nil {
			query = s
		}
	}
	return sinks, query
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.name }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Policy is the effective catalog policy
func (m *Module) Policy() catalog.Policy { return m.policy }

// Options are the validated settings the module was built with
func (m *Module) Options() Options { return m.opts }

// Sinks lists the sink names a run persists to
func (m *Module) Sinks() []string {
	out := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		out = append(out, s.Name())
	}
	return out
}

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		releaseshttp.Register(rr, m.ports.Runner, m.ports.Query)
	})
}
