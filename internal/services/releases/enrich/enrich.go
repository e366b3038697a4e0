// Package enrich attaches ratings to rows with one lookup per distinct title id
package enrich

import (
	"context"
	"sort"
	"time"

	"ottscout/internal/adapters/ingest/upstream"
	"ottscout/internal/platform/logger"
	dom "ottscout/internal/services/releases/domain"
)

// Config tunes the lookup pacing
type Config struct {
	// DetailDelay is slept between consecutive lookups
	DetailDelay time.Duration
	Sleep       func(time.Duration)
}

// Cache resolves ratings for one run; a nil lookup makes it a no-op
type Cache struct {
	lookup  dom.RatingLookup
	cfg     Config
	entries map[string]*float64
	partial bool
}

// New returns an empty Cache
func New(lookup dom.RatingLookup, cfg Config) *Cache {
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &Cache{lookup: lookup, cfg: cfg, entries: map[string]*float64{}}
}

// Enabled reports whether a lookup is wired
func (c *Cache) Enabled() bool { return c.lookup != nil }

// Partial reports whether a rate limit or cancellation cut the lookups short
func (c *Cache) Partial() bool { return c.partial }

// IDs returns the distinct non-empty title ids of rows, sorted
func IDs(rows []dom.CanonicalRow) []string {
	set := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.TitleID != "" {
			set[r.TitleID] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Enrich looks up every id not already cached and returns the ratings found
// Failed lookups leave the id unrated; an exhausted rate limit stops the remaining lookups
func (c *Cache) Enrich(ctx context.Context, ids []string) map[string]*float64 {
	out := make(map[string]*float64, len(ids))
	if c.lookup == nil {
		return out
	}
	log := logger.C(ctx).With().Str("component", "enrich").Logger()

	called := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if r, ok := c.entries[id]; ok {
			if r != nil {
				out[id] = r
			}
			continue
		}
		if ctx.Err() != nil {
			c.partial = true
			log.Warn().Err(ctx.Err()).Int("resolved", len(out)).Msg("enrichment cancelled")
			break
		}
		if called > 0 {
			c.cfg.Sleep(c.cfg.DetailDelay)
		}
		called++

		r, err := c.lookup.Rating(ctx, id)
		if upstream.IsRateLimitExhausted(err) {
			c.partial = true
			log.Warn().Str("title_id", id).Int("resolved", len(out)).Msg("rating lookups rate limited, stopping")
			break
		}
		if err != nil {
			log.Warn().Err(err).Str("title_id", id).Msg("rating lookup failed")
			c.entries[id] = nil
			continue
		}
		c.entries[id] = r
		if r != nil {
			out[id] = r
		}
	}
	log.Info().Int("ids", len(ids)).Int("lookups", called).Int("rated", len(out)).Msg("enrichment done")
	return out
}

// Apply copies ratings onto rows by title id and returns how many rows were rated
func Apply(rows []dom.CanonicalRow, ratings map[string]*float64) int {
	n := 0
	for i := range rows {
		if r, ok := ratings[rows[i].TitleID]; ok && r != nil && rows[i].TitleID != "" {
			v := *r
			rows[i].Rating = &v
			n++
		}
	}
	return n
}
