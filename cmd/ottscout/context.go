package main

import (
	"context"
	"database/sql"
	"strings"

	"ottscout/internal/modkit"
	"ottscout/internal/platform/config"
	"ottscout/internal/platform/logger"
	"ottscout/internal/platform/store"
	"ottscout/internal/platform/store/lite"
	releases "ottscout/internal/services/releases/module"
)

type commandContext struct {
	cfg config.Conf

	logLevel   string
	logFormat  string
	policyFile string
	sqlitePath string
}

func newCommandContext() *commandContext {
	return &commandContext{cfg: config.New()}
}

// env is the OTTSCOUT_ view every command reads
func (c *commandContext) env() config.Conf { return c.cfg.Prefix("OTTSCOUT_") }

func (c *commandContext) initLogger() {
	opts := logger.FromEnv()
	if lvl := strings.TrimSpace(c.logLevel); lvl != "" {
		opts.Level = strings.ToLower(lvl)
	}
	if f := strings.TrimSpace(c.logFormat); f != "" {
		opts.Format = strings.ToLower(f)
	}
	logger.Init(opts)
}

// openDeps opens the stores that are configured; the returned func closes them
func (c *commandContext) openDeps(ctx context.Context) (modkit.Deps, func(), error) {
	log := logger.Get()
	st, err := store.Open(ctx, store.FromConfig(c.env(), "ottscout"), store.WithLogger(*log))
	if err != nil {
		return modkit.Deps{}, func() {}, err
	}

	var db *sql.DB
	path := c.sqlitePath
	if path == "" {
		path = c.env().MayString("SQLITE_PATH", "")
	}
	if path != "" {
		db, err = lite.Open(ctx, path)
		if err != nil {
			_ = st.Close(ctx)
			return modkit.Deps{}, func() {}, err
		}
	}

	closeAll := func() {
		if err := st.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("close store")
		}
		if db != nil {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("close sqlite")
			}
		}
	}
	return modkit.Deps{Log: *log, Cfg: c.cfg, Store: st, Lite: db}, closeAll, nil
}

// module opens the stores and builds the releases module over them
func (c *commandContext) module(ctx context.Context) (*releases.Module, modkit.Deps, func(), error) {
	deps, closeAll, err := c.openDeps(ctx)
	if err != nil {
		return nil, deps, closeAll, err
	}
	m, err := releases.New(deps)
	if err != nil {
		closeAll()
		return nil, deps, func() {}, err
	}
	return m, deps, closeAll, nil
}
