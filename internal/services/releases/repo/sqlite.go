package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"ottscout/internal/core/catalog"
	perr "ottscout/internal/platform/errors"
	dom "ottscout/internal/services/releases/domain"

	"github.com/google/uuid"
)

// LiteSchema is the SQLite flavour of Schema
const LiteSchema = `
CREATE TABLE IF NOT EXISTS ottscout_runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	source      TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	stats       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ottscout_runs_started_idx ON ottscout_runs (started_at DESC);
CREATE TABLE IF NOT EXISTS ottscout_rows (
	run_id     TEXT NOT NULL REFERENCES ottscout_runs (run_id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	title_id   TEXT NOT NULL,
	platform   TEXT NOT NULL,
	region     TEXT NOT NULL,
	title      TEXT NOT NULL,
	year       TEXT NOT NULL,
	type       TEXT NOT NULL,
	languages  TEXT NOT NULL,
	date_added TEXT NOT NULL,
	rating     REAL,
	PRIMARY KEY (run_id, position)
);`

// liteTime is fixed width UTC text so that string order is time order
const liteTime = "2006-01-02T15:04:05.000000000Z07:00"

// LiteSink keeps run history in a local SQLite file
type LiteSink struct {
	db   *sql.DB
	once sync.Once
	err  error
}

// NewLiteSink wraps an open database; see lite.Open
func NewLiteSink(db *sql.DB) *LiteSink { return &LiteSink{db: db} }

// Name satisfies domain.SinkPort
func (s *LiteSink) Name() string { return "sqlite" }

func (s *LiteSink) ensure(ctx context.Context) error {
	s.once.Do(func() {
		if _, err := s.db.ExecContext(ctx, LiteSchema); err != nil {
			s.err = perr.Wrap(err, perr.ErrorCodeDB, "ensure sqlite schema")
		}
	})
	return s.err
}

// Save writes the run and its rows in one transaction
func (s *LiteSink) Save(ctx context.Context, rep dom.Report) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	stats, err := json.Marshal(rep.Stats)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode run stats")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	id := rep.RunID.String()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO ottscout_runs (run_id, started_at, finished_at, source, row_count, stats) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rep.StartedAt.UTC().Format(liteTime), rep.FinishedAt.UTC().Format(liteTime), rep.Stats.Source, len(rep.Rows), string(stats),
	); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "insert run")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO ottscout_rows
		(run_id, position, title_id, platform, region, title, year, type, languages, date_added, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "prepare row insert")
	}
	defer stmt.Close()
	for i, r := range rep.Rows {
		langs, err := json.Marshal(r.Languages)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeJSON, "encode languages")
		}
		if _, err := stmt.ExecContext(ctx, id, i, r.TitleID, string(r.Platform), string(r.Region), r.Title, r.Year,
			string(r.Type), string(langs), r.DateAdded.UTC().Format("2006-01-02"), r.Rating); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeDB, "insert row %d", i)
		}
	}
	return perr.WrapIf(tx.Commit(), perr.ErrorCodeDB, "commit")
}

const liteRunColumns = `run_id, started_at, finished_at, source, row_count, stats`

// ListRuns returns the newest runs first
func (s *LiteSink) ListRuns(ctx context.Context, limit int) ([]dom.RunSummary, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	rs, err := s.db.QueryContext(ctx, `SELECT `+liteRunColumns+` FROM ottscout_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "list runs")
	}
	defer rs.Close()
	var out []dom.RunSummary
	for rs.Next() {
		run, err := scanLiteRun(rs)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, perr.WrapIf(rs.Err(), perr.ErrorCodeDB, "list runs")
}

// LatestRun returns the most recent run
func (s *LiteSink) LatestRun(ctx context.Context) (dom.RunSummary, error) {
	if err := s.ensure(ctx); err != nil {
		return dom.RunSummary{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+liteRunColumns+` FROM ottscout_runs ORDER BY started_at DESC LIMIT 1`)
	run, err := scanLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dom.RunSummary{}, perr.NotFoundf("no runs recorded yet")
	}
	return run, err
}

// Rows reads a run's rows in stored order, filtered by f
func (s *LiteSink) Rows(ctx context.Context, runID uuid.UUID, f dom.RowFilter) ([]dom.CanonicalRow, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	q := `SELECT title, year, type, languages, platform, region, date_added, title_id, rating
		FROM ottscout_rows WHERE run_id = ?`
	args := []any{runID.String()}
	if f.Region != "" {
		q += ` AND region = ?`
		args = append(args, strings.ToUpper(f.Region))
	}
	if f.Platform != "" {
		q += ` AND lower(platform) = lower(?)`
		args = append(args, f.Platform)
	}
	q += ` ORDER BY position`

	rs, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "read rows")
	}
	defer rs.Close()
	var out []dom.CanonicalRow
	for rs.Next() {
		row, err := scanLiteRow(rs)
		if err != nil {
			return nil, err
		}
		// languages are a JSON array here, so that filter runs in Go
		if f.Match(row) {
			out = append(out, row)
		}
	}
	return out, perr.WrapIf(rs.Err(), perr.ErrorCodeDB, "read rows")
}

type scanner interface{ Scan(dest ...any) error }

func scanLiteRun(r scanner) (dom.RunSummary, error) {
	var (
		out                      dom.RunSummary
		id, started, done, stats string
	)
	if err := r.Scan(&id, &started, &done, &out.Source, &out.Rows, &stats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, err
		}
		return out, perr.Wrap(err, perr.ErrorCodeDB, "scan run")
	}
	var err error
	if out.RunID, err = uuid.Parse(id); err != nil {
		return out, perr.Wrapf(err, perr.ErrorCodeDB, "bad run id %q", id)
	}
	if out.StartedAt, err = time.Parse(liteTime, started); err != nil {
		return out, perr.Wrap(err, perr.ErrorCodeDB, "bad started_at")
	}
	if out.FinishedAt, err = time.Parse(liteTime, done); err != nil {
		return out, perr.Wrap(err, perr.ErrorCodeDB, "bad finished_at")
	}
	if err := json.Unmarshal([]byte(stats), &out.Stats); err != nil {
		return out, perr.Wrap(err, perr.ErrorCodeJSON, "decode run stats")
	}
	return out, nil
}

func scanLiteRow(r scanner) (dom.CanonicalRow, error) {
	var (
		out                             dom.CanonicalRow
		typ, langs, plat, region, added string
		rating                          sql.NullFloat64
	)
	if err := r.Scan(&out.Title, &out.Year, &typ, &langs, &plat, &region, &added, &out.TitleID, &rating); err != nil {
		return out, perr.Wrap(err, perr.ErrorCodeDB, "scan row")
	}
	if err := json.Unmarshal([]byte(langs), &out.Languages); err != nil {
		return out, perr.Wrap(err, perr.ErrorCodeJSON, "decode languages")
	}
	d, err := time.Parse("2006-01-02", added)
	if err != nil {
		return out, perr.Wrap(err, perr.ErrorCodeDB, "bad date_added")
	}
	out.Type = catalog.ContentType(typ)
	out.Platform = catalog.Platform(plat)
	out.Region = catalog.Region(region)
	out.DateAdded = d
	if rating.Valid {
		v := rating.Float64
		out.Rating = &v
	}
	return out, nil
}

var (
	_ dom.SinkPort  = (*LiteSink)(nil)
	_ dom.QueryPort = (*LiteSink)(nil)
)
