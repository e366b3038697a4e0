// Package service runs the releases pipeline end to end
package service

import (
	"context"
	"time"

	"ottscout/internal/adapters/ingest/upstream"
	"ottscout/internal/core/catalog"
	"ottscout/internal/platform/logger"
	"ottscout/internal/services/releases/assemble"
	"ottscout/internal/services/releases/dedupe"
	dom "ottscout/internal/services/releases/domain"
	"ottscout/internal/services/releases/enrich"
	"ottscout/internal/services/releases/normalize"

	"github.com/google/uuid"
)

// Config for one pipeline
type Config struct {
	Regions  []catalog.Region
	Catalogs []string
	// Lookback is how far back the cursor upstream starts
	Lookback time.Duration
	// RegionDelay is slept between regions
	RegionDelay time.Duration
	// DetailDelay is slept between rating lookups
	DetailDelay time.Duration

	Sleep func(time.Duration)
	Now   func() time.Time
}

// Service wires a source, an optional rating lookup and sinks around the pipeline stages
type Service struct {
	src     dom.Source
	ratings dom.RatingLookup
	policy  catalog.Policy
	sinks   []dom.SinkPort
	cfg     Config
}

// New constructs a Service; ratings may be nil, which skips enrichment
func New(src dom.Source, ratings dom.RatingLookup, policy catalog.Policy, sinks []dom.SinkPort, cfg Config) *Service {
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = []catalog.Region{"US", "IN"}
	}
	return &Service{src: src, ratings: ratings, policy: policy, sinks: sinks, cfg: cfg}
}

// Run fetches every region, normalizes, deduplicates, enriches, orders and persists
// Upstream failures skip a region; only cancellation ends a run early, with the rows gathered so far
func (s *Service) Run(ctx context.Context) (dom.Report, error) {
	rep := dom.Report{RunID: uuid.New(), StartedAt: s.cfg.Now().UTC()}
	ctx = logger.WithRun(ctx, rep.RunID.String())
	log := logger.C(ctx).With().Str("component", "releases").Str("source", s.src.Name()).Logger()

	stats := dom.RunStats{Source: s.src.Name(), RawByRegion: map[string]int{}}
	norm := normalize.New(s.policy, rep.StartedAt)
	seen := dedupe.New()
	since := rep.StartedAt.Add(-s.cfg.Lookback)

	log.Info().Int("regions", len(s.cfg.Regions)).Msg("run started")

	var (
		rows   []dom.CanonicalRow
		runErr error
	)
	for i, region := range s.cfg.Regions {
		if i > 0 {
			s.cfg.Sleep(s.cfg.RegionDelay)
		}
		raws, err := s.src.FetchAll(ctx, dom.Query{Region: region, Catalogs: s.cfg.Catalogs, Since: since})
		stats.RawByRegion[region.String()] = len(raws)
		if ctx.Err() != nil {
			runErr = ctx.Err()
		} else if err != nil {
			log.Error().Err(err).Str("region", region.String()).Int("status", upstream.StatusOf(err)).Msg("region skipped")
			stats.SkippedRegions = append(stats.SkippedRegions, region.String())
			continue
		}
		for _, raw := range raws {
			admitted := norm.Normalize(raw, region)
			stats.Admitted += len(admitted)
			rows = append(rows, seen.Unique(admitted)...)
		}
		log.Info().Str("region", region.String()).Int("raw", len(raws)).Int("rows", len(rows)).Msg("region done")
		if runErr != nil {
			break
		}
	}
	stats.Duplicates = seen.Dropped()

	ids := enrich.IDs(rows)
	stats.UniqueIDs = len(ids)
	cache := enrich.New(s.ratings, enrich.Config{DetailDelay: s.cfg.DetailDelay, Sleep: s.cfg.Sleep})
	switch {
	case runErr != nil:
	case !cache.Enabled():
		stats.EnrichSkipped = true
		log.Warn().Msg("no ratings credential, enrichment skipped")
	default:
		stats.Rated = enrich.Apply(rows, cache.Enrich(ctx, ids))
		stats.EnrichPartial = cache.Partial()
	}

	assemble.Order(rows, s.policy)
	rep.Rows = rows
	rep.Stats = stats
	rep.FinishedAt = s.cfg.Now().UTC()

	if runErr != nil {
		log.Warn().Err(runErr).Int("rows", len(rows)).Msg("run cancelled")
		return rep, runErr
	}

	for _, sink := range s.sinks {
		if err := sink.Save(ctx, rep); err != nil {
			log.Error().Err(err).Str("sink", sink.Name()).Msg("persisting run failed")
			continue
		}
		log.Debug().Str("sink", sink.Name()).Msg("run persisted")
	}
	log.Info().
		Int("rows", len(rows)).
		Int("duplicates", stats.Duplicates).
		Int("rated", stats.Rated).
		Dur("took", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("run finished")
	return rep, nil
}

var _ dom.RunnerPort = (*Service)(nil)
