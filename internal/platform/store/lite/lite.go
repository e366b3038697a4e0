// Package lite opens the embedded SQLite run history
package lite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	perr "ottscout/internal/platform/errors"

	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Open creates path's directory, opens the database and applies pragmas
// The pool holds one connection so writers never race each other
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeDB, "create %s", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "open sqlite db")
	}
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeDB, "apply %q", p)
		}
	}
	return db, nil
}
