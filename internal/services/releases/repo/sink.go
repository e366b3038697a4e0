package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ottscout/internal/modkit/repokit"
	perr "ottscout/internal/platform/errors"
	"ottscout/internal/platform/logger"
	dom "ottscout/internal/services/releases/domain"

	"github.com/google/uuid"
)

// PGConfig tunes the Postgres sink
type PGConfig struct {
	// Attempts bounds retries of a whole save on serialization or deadlock errors
	Attempts int
	// StatementTimeout is set per transaction, zero leaves the server default
	StatementTimeout time.Duration
	// Sleep is used between attempts
	Sleep func(time.Duration)
}

// PGSink stores runs and rows in Postgres and reads them back for the API
type PGSink struct {
	tx     repokit.TxRunner
	binder repokit.Binder[Storage]
	cfg    PGConfig

	schemaMu sync.Mutex
	schemaOK bool
}

// NewPGSink wraps tx; the schema is ensured lazily on first use
func NewPGSink(tx repokit.TxRunner, binder repokit.Binder[Storage], cfg PGConfig) *PGSink {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.StatementTimeout > 0 {
		ms := cfg.StatementTimeout.Milliseconds()
		tx = repokit.WithBeginHooks(tx, func(ctx context.Context, q repokit.Queryer) error {
			_, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", ms))
			return err
		})
	}
	return &PGSink{tx: tx, binder: binder, cfg: cfg}
}

// Name satisfies domain.SinkPort
func (s *PGSink) Name() string { return "postgres" }

func (s *PGSink) ensure(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaOK {
		return nil
	}
	if err := s.binder.Bind(s.tx).EnsureSchema(ctx); err != nil {
		return dbErr(err, "ensure run schema")
	}
	s.schemaOK = true
	return nil
}

// Save writes the run and its rows in one transaction, retrying transient conflicts
func (s *PGSink) Save(ctx context.Context, rep dom.Report) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	log := logger.C(ctx)

	var err error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		err = repokit.WithTx(ctx, s.tx, func(q repokit.Queryer) error {
			st := s.binder.Bind(q)
			if err := st.InsertRun(ctx, rep); err != nil {
				return err
			}
			return st.InsertRows(ctx, rep.RunID, rep.Rows)
		})
		if err == nil || !perr.IsRetryable(err) || attempt == s.cfg.Attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("postgres save conflicted, retrying")
		s.cfg.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	if err != nil {
		return dbErr(err, "save run")
	}
	return nil
}

// ListRuns satisfies domain.QueryPort
func (s *PGSink) ListRuns(ctx context.Context, limit int) ([]dom.RunSummary, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	runs, err := s.binder.Bind(s.tx).ListRuns(ctx, limit)
	return runs, dbErr(err, "list runs")
}

// LatestRun satisfies domain.QueryPort
func (s *PGSink) LatestRun(ctx context.Context) (dom.RunSummary, error) {
	if err := s.ensure(ctx); err != nil {
		return dom.RunSummary{}, err
	}
	run, err := s.binder.Bind(s.tx).LatestRun(ctx)
	return run, dbErr(err, "latest run")
}

// Rows satisfies domain.QueryPort
func (s *PGSink) Rows(ctx context.Context, runID uuid.UUID, f dom.RowFilter) ([]dom.CanonicalRow, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	rows, err := s.binder.Bind(s.tx).Rows(ctx, runID, f)
	return rows, dbErr(err, "read rows")
}

// dbErr classifies driver errors and leaves already coded errors alone
func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.FromPostgres(err, msg)
}

var (
	_ dom.SinkPort  = (*PGSink)(nil)
	_ dom.QueryPort = (*PGSink)(nil)
)
