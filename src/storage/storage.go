package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"option-guide/src/helpers"
	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/models"
)

var errNotInitialized = errors.New("database not initialized")

// NewDatabase builds the journal selected by cfg.Storage.DBType and runs its
// migrations. It returns nil when storage is disabled.
func NewDatabase(cfg *models.MConfig, l *logger.Logger) (interfaces.IDatabase, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}

	if l == nil {
		l = logger.Nop()
	}

	var (
		db  interfaces.IDatabase
		err error
	)
	switch cfg.Storage.DBType {
	case "postgres":
		db, err = NewPostgresDB(cfg, l.Named("PostgresDB"))
	case "sqlite", "":
		db, err = NewAsyncSQLiteDB(cfg, l.Named("SQLiteDB"))
	default:
		return nil, helpers.NewValidationError("unknown storage.db_type '%s'", cfg.Storage.DBType)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}
	return db, nil
}

// -----------------------------------------------------------------------------

func observedMillis(q models.MQuote) int64 {
	if q.ObservedAt.IsZero() {
		return time.Now().UnixMilli()
	}
	return q.ObservedAt.UnixMilli()
}

func scanQuote(row *sql.Row) (models.MQuote, bool, error) {
	var (
		q      models.MQuote
		millis int64
	)
	if err := row.Scan(&q.Source, &q.Price, &millis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MQuote{}, false, nil
		}
		return models.MQuote{}, false, helpers.NewDatabaseError("latest quote", err)
	}
	q.ObservedAt = time.UnixMilli(millis).UTC()
	return q, true, nil
}
