// Package repo persists pipeline runs to Postgres, ClickHouse and a local SQLite file
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ottscout/internal/core/catalog"
	"ottscout/internal/modkit/repokit"
	perr "ottscout/internal/platform/errors"
	"ottscout/internal/platform/store"
	pstrings "ottscout/internal/platform/strings"
	dom "ottscout/internal/services/releases/domain"

	"github.com/google/uuid"
)

// Schema is applied idempotently before the first write
const Schema = `
CREATE TABLE IF NOT EXISTS ottscout_runs (
	run_id      uuid PRIMARY KEY,
	started_at  timestamptz NOT NULL,
	finished_at timestamptz NOT NULL,
	source      text NOT NULL,
	row_count   integer NOT NULL,
	stats       jsonb NOT NULL
);
CREATE INDEX IF NOT EXISTS ottscout_runs_started_idx ON ottscout_runs (started_at DESC);
CREATE TABLE IF NOT EXISTS ottscout_rows (
	run_id     uuid NOT NULL REFERENCES ottscout_runs (run_id) ON DELETE CASCADE,
	position   integer NOT NULL,
	title_id   text,
	platform   text NOT NULL,
	region     text NOT NULL,
	title      text NOT NULL,
	year       text NOT NULL,
	type       text NOT NULL,
	languages  text[] NOT NULL,
	date_added date NOT NULL,
	rating     double precision,
	PRIMARY KEY (run_id, position)
);`

const rowCols = 11

// rowsPerInsert keeps one statement under the 65535 bind parameter limit
const rowsPerInsert = 1000

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG returns the Postgres binder
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage is the Postgres surface of a run store
type Storage interface {
	EnsureSchema(ctx context.Context) error
	InsertRun(ctx context.Context, rep dom.Report) error
	InsertRows(ctx context.Context, runID uuid.UUID, rows []dom.CanonicalRow) error
	ListRuns(ctx context.Context, limit int) ([]dom.RunSummary, error)
	LatestRun(ctx context.Context) (dom.RunSummary, error)
	Rows(ctx context.Context, runID uuid.UUID, f dom.RowFilter) ([]dom.CanonicalRow, error)
}

func (s *pg) EnsureSchema(ctx context.Context) error {
	_, err := s.q.Exec(ctx, Schema)
	return err
}

func (s *pg) InsertRun(ctx context.Context, rep dom.Report) error {
	stats, err := json.Marshal(rep.Stats)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode run stats")
	}
	return store.ExecOne(ctx, s.q, `
		INSERT INTO ottscout_runs (run_id, started_at, finished_at, source, row_count, stats)
		VALUES ($1::uuid, $2, $3, $4, $5, $6::jsonb)`,
		rep.RunID.String(), rep.StartedAt, rep.FinishedAt, rep.Stats.Source, len(rep.Rows), string(stats),
	)
}

func (s *pg) InsertRows(ctx context.Context, runID uuid.UUID, rows []dom.CanonicalRow) error {
	for start := 0; start < len(rows); start += rowsPerInsert {
		end := min(start+rowsPerInsert, len(rows))
		sql, args := insertRowsSQL(runID, start, rows[start:end])
		if _, err := s.q.Exec(ctx, sql, args...); err != nil {
			return err
		}
	}
	return nil
}

// insertRowsSQL builds one multi VALUES insert; offset is the position of rows[0]
func insertRowsSQL(runID uuid.UUID, offset int, rows []dom.CanonicalRow) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO ottscout_rows
		(run_id, position, title_id, platform, region, title, year, type, languages, date_added, rating) VALUES `)

	args := make([]any, 0, len(rows)*rowCols)
	id := runID.String()
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		b := i*rowCols + 1
		fmt.Fprintf(&sb, "($%d::uuid,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			b, b+1, b+2, b+3, b+4, b+5, b+6, b+7, b+8, b+9, b+10)
		args = append(args,
			id, offset+i, pstrings.SQLNull(r.TitleID), string(r.Platform), string(r.Region), r.Title, r.Year,
			string(r.Type), r.Languages, r.DateAdded, r.Rating,
		)
	}
	sb.WriteString(` ON CONFLICT (run_id, position) DO NOTHING`)
	return sb.String(), args
}

const runColumns = `run_id::text, started_at, finished_at, source, row_count, stats`

func (s *pg) ListRuns(ctx context.Context, limit int) ([]dom.RunSummary, error) {
	return store.Many(ctx, s.q, scanRun,
		`SELECT `+runColumns+` FROM ottscout_runs ORDER BY started_at DESC LIMIT $1`, limit)
}

func (s *pg) LatestRun(ctx context.Context) (dom.RunSummary, error) {
	run, err := store.One(ctx, s.q, scanRun,
		`SELECT `+runColumns+` FROM ottscout_runs ORDER BY started_at DESC LIMIT 1`)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return dom.RunSummary{}, perr.NotFoundf("no runs recorded yet")
	}
	return run, err
}

func (s *pg) Rows(ctx context.Context, runID uuid.UUID, f dom.RowFilter) ([]dom.CanonicalRow, error) {
	sql, args := selectRowsSQL(runID, f)
	return store.Many(ctx, s.q, scanRow, sql, args...)
}

// selectRowsSQL builds the filtered read in stored order
func selectRowsSQL(runID uuid.UUID, f dom.RowFilter) (string, []any) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`
		SELECT title, year, type, languages, platform, region, date_added, title_id, rating
		FROM ottscout_rows
		WHERE run_id = ` + arg(runID.String()) + `::uuid
	`)
	if f.Region != "" {
		sb.WriteString("  AND region = " + arg(strings.ToUpper(f.Region)) + "\n")
	}
	if f.Platform != "" {
		sb.WriteString("  AND lower(platform) = lower(" + arg(f.Platform) + ")\n")
	}
	if f.Language != "" {
		sb.WriteString("  AND EXISTS (SELECT 1 FROM unnest(languages) l WHERE lower(l) = lower(" + arg(f.Language) + "))\n")
	}
	sb.WriteString("ORDER BY position")
	return sb.String(), args
}

func scanRun(r store.Row) (dom.RunSummary, error) {
	var (
		out   dom.RunSummary
		id    string
		stats []byte
	)
	if err := r.Scan(&id, &out.StartedAt, &out.FinishedAt, &out.Source, &out.Rows, &stats); err != nil {
		return out, err
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return out, perr.Wrapf(err, perr.ErrorCodeDB, "bad run id %q", id)
	}
	out.RunID = u
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &out.Stats); err != nil {
			return out, perr.Wrap(err, perr.ErrorCodeJSON, "decode run stats")
		}
	}
	return out, nil
}

func scanRow(r store.Row) (dom.CanonicalRow, error) {
	var (
		out               dom.CanonicalRow
		typ, plat, region string
		titleID           *string
		added             time.Time
	)
	err := r.Scan(&out.Title, &out.Year, &typ, &out.Languages, &plat, &region, &added, &titleID, &out.Rating)
	if err != nil {
		return out, err
	}
	out.TitleID = pstrings.Deref(titleID)
	out.Type = catalog.ContentType(typ)
	out.Platform = catalog.Platform(plat)
	out.Region = catalog.Region(region)
	out.DateAdded = added.UTC()
	return out, nil
}
