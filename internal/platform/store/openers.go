package store

import (
	"context"
	"fmt"
	"time"

	chx "ottscout/internal/platform/store/ch"
	"ottscout/internal/platform/store/pg"
)

const (
	backoffStart   = 250 * time.Millisecond
	backoffCeiling = 8 * time.Second
)

// sleep is swapped in tests
var sleep = time.Sleep

// openPG opens the pool and publishes the adapter only once a ping succeeds
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	attempts := max(cfg.PG.ConnectRetries, 1)
	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var lastErr error
	wait := backoffStart
	for i := 0; i < attempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = p.Pool.Ping(pctx)
		cancel()
		if lastErr == nil {
			return newPGAdapter(p), nil
		}
		if ctx.Err() != nil {
			p.Close()
			return nil, ctx.Err()
		}
		s.Log.Warn().Err(lastErr).Int("attempt", i+1).Int("max", attempts).Dur("wait", wait).Msg("postgres not ready")
		if i < attempts-1 {
			sleep(wait)
			wait = nextBackoff(wait)
		}
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, lastErr)
}

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, backoffCeiling)
}

func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{URL: cfg.CH.URL, Role: cfg.AppName, Version: cfg.CH.Version})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c), nil
}
