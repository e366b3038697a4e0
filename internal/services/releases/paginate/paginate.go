// Package paginate drains the offset and cursor catalog upstreams into raw records
package paginate

import (
	"context"
	"errors"
	"time"

	"ottscout/internal/adapters/ingest/ottdetails"
	"ottscout/internal/adapters/ingest/streaming"
	"ottscout/internal/adapters/ingest/upstream"
	"ottscout/internal/platform/logger"
	dom "ottscout/internal/services/releases/domain"
)

// DefaultMaxPages bounds offset pagination
const DefaultMaxPages = 20

// Config is shared by both flavours
type Config struct {
	// MaxPages caps offset pagination; the cursor flavour has no cap
	MaxPages int
	// PageDelay is slept between successful page fetches
	PageDelay time.Duration
	// Sleep defaults to time.Sleep
	Sleep func(time.Duration)
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	return c
}

// PageFetcher is the offset upstream
type PageFetcher interface {
	NewArrivals(ctx context.Context, region string, page int) ([]ottdetails.Title, error)
}

// ChangesFetcher is the cursor upstream
type ChangesFetcher interface {
	Changes(ctx context.Context, q streaming.ChangesQuery) (streaming.Page, error)
}

// Offset pages /getnew from 1 until a short page or MaxPages
type Offset struct {
	api PageFetcher
	cfg Config
}

// NewOffset returns an offset Source
func NewOffset(api PageFetcher, cfg Config) *Offset {
	return &Offset{api: api, cfg: cfg.withDefaults()}
}

// Name satisfies domain.Source
func (o *Offset) Name() string { return "ottdetails" }

// FetchAll satisfies domain.Source
func (o *Offset) FetchAll(ctx context.Context, q dom.Query) ([]dom.RawRecord, error) {
	log := logger.C(ctx).With().Str("source", o.Name()).Str("region", q.Region.String()).Logger()

	var acc []dom.RawRecord
	for page := 1; page <= o.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return acc, err
		}
		titles, err := o.api.NewArrivals(ctx, q.Region.String(), page)
		if err != nil {
			return stop(ctx, log, acc, page, err)
		}
		for _, t := range titles {
			acc = append(acc, dom.FromOTT(t))
		}
		log.Debug().Int("page", page).Int("records", len(titles)).Msg("page fetched")

		// a page of zero or one record is the last one
		if len(titles) <= 1 || page == o.cfg.MaxPages {
			break
		}
		o.cfg.Sleep(o.cfg.PageDelay)
	}
	return acc, nil
}

// Cursor follows has_more and next_cursor until the feed ends
type Cursor struct {
	api ChangesFetcher
	cfg Config
}

// NewCursor returns a cursor Source
func NewCursor(api ChangesFetcher, cfg Config) *Cursor {
	return &Cursor{api: api, cfg: cfg.withDefaults()}
}

// Name satisfies domain.Source
func (c *Cursor) Name() string { return "streaming" }

// FetchAll satisfies domain.Source
func (c *Cursor) FetchAll(ctx context.Context, q dom.Query) ([]dom.RawRecord, error) {
	log := logger.C(ctx).With().Str("source", c.Name()).Str("region", q.Region.String()).Logger()

	var (
		acc    []dom.RawRecord
		cursor string
	)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return acc, err
		}
		res, err := c.api.Changes(ctx, streaming.ChangesQuery{
			Country:  q.Region.String(),
			Catalogs: q.Catalogs,
			Since:    q.Since,
			Cursor:   cursor,
		})
		if err != nil {
			return stop(ctx, log, acc, page, err)
		}
		for _, s := range res.Shows {
			acc = append(acc, dom.FromShow(s))
		}
		log.Debug().Int("page", page).Int("records", len(res.Shows)).Bool("has_more", res.HasMore).Msg("page fetched")

		if !res.HasMore {
			break
		}
		if res.NextCursor == "" || res.NextCursor == cursor {
			log.Warn().Int("page", page).Str("cursor", res.NextCursor).Msg("has_more without a new cursor, treating as end of data")
			break
		}
		cursor = res.NextCursor
		c.cfg.Sleep(c.cfg.PageDelay)
	}
	return acc, nil
}

// stop decides what a failed page means for the records gathered so far
func stop(ctx context.Context, log logger.Logger, acc []dom.RawRecord, page int, err error) ([]dom.RawRecord, error) {
	switch {
	case ctx.Err() != nil:
		return acc, ctx.Err()
	case upstream.IsRateLimitExhausted(err):
		log.Warn().Int("page", page).Int("records", len(acc)).Msg("rate limit exhausted, returning partial results")
		return acc, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return acc, err
	default:
		return nil, err
	}
}

var (
	_ dom.Source = (*Offset)(nil)
	_ dom.Source = (*Cursor)(nil)
)
