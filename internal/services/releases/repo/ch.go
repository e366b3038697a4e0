package repo

import (
	"context"
	"sync"

	perr "ottscout/internal/platform/errors"
	"ottscout/internal/platform/store"
	dom "ottscout/internal/services/releases/domain"
)

// CHSchema is the analytics copy of every row ever reported
const CHSchema = `
CREATE TABLE IF NOT EXISTS ottscout_rows (
	run_id      UUID,
	run_started DateTime64(3, 'UTC'),
	position    UInt32,
	title_id    String,
	platform    LowCardinality(String),
	region      LowCardinality(String),
	title       String,
	year        String,
	type        LowCardinality(String),
	languages   Array(String),
	date_added  Date,
	rating      Nullable(Float64)
) ENGINE = MergeTree
ORDER BY (region, platform, date_added, run_id, position)`

var chColumns = []string{
	"run_id", "run_started", "position", "title_id", "platform", "region",
	"title", "year", "type", "languages", "date_added", "rating",
}

// CHSink batch inserts each run's rows into ClickHouse
type CHSink struct {
	ch store.Clickhouse

	once    sync.Once
	initErr error
}

// NewCHSink wraps a clickhouse seam
func NewCHSink(ch store.Clickhouse) *CHSink { return &CHSink{ch: ch} }

// Name satisfies domain.SinkPort
func (s *CHSink) Name() string { return "clickhouse" }

// Save satisfies domain.SinkPort
func (s *CHSink) Save(ctx context.Context, rep dom.Report) error {
	s.once.Do(func() { s.initErr = s.ch.Exec(ctx, CHSchema) })
	if s.initErr != nil {
		return perr.Wrap(s.initErr, perr.ErrorCodeDB, "ensure clickhouse schema")
	}
	if len(rep.Rows) == 0 {
		return nil
	}
	if err := s.ch.Insert(ctx, "ottscout_rows", chColumns, chRows(rep)); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "insert clickhouse rows")
	}
	return nil
}

func chRows(rep dom.Report) [][]any {
	out := make([][]any, 0, len(rep.Rows))
	for i, r := range rep.Rows {
		langs := r.Languages
		if langs == nil {
			langs = []string{}
		}
		out = append(out, []any{
			rep.RunID, rep.StartedAt.UTC(), uint32(i), r.TitleID, string(r.Platform), string(r.Region),
			r.Title, r.Year, string(r.Type), langs, r.DateAdded, r.Rating,
		})
	}
	return out
}

var _ dom.SinkPort = (*CHSink)(nil)
