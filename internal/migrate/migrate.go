// Package migrate applies embedded SQL migrations to an open vault database.
package migrate

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/and161185/localvault/migrations"
)

// goose keeps its dialect, base FS and logger in package globals.
var mu sync.Mutex

// Up runs all pending migrations from the embedded filesystem. It is idempotent.
func Up(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{log.Named("goose").Sugar()})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// Version reports the current schema version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}

// gooseLogger routes goose output to zap at debug level.
type gooseLogger struct{ s *zap.SugaredLogger }

func (l gooseLogger) Printf(format string, v ...any) { l.s.Debugf(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...any) { l.s.Fatalf(format, v...) }
