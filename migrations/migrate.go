package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"yashubustudio/agreement/internal/logger"
)

//go:embed *.sql
var embedMigrations embed.FS

// Migrate brings the run archive schema up to date. goose output goes to log
// at debug level; a nil log discards it.
func Migrate(db *sql.DB, log *logger.Logger) error {
	if db == nil {
		return errors.New("migration error: db is nil")
	}
	if log == nil {
		log = logger.Nop()
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{log: log})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}

// gooseLogger routes goose's printf-style output through zerolog.
type gooseLogger struct {
	log *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Debug().Str("func", "goose").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf only logs; migration failures reach the caller as errors.
func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Error().Str("func", "goose").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
