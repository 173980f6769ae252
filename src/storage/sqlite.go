package storage

import (
	"database/sql"
	"fmt"
	"time"

	"option-guide/src/helpers"
	"option-guide/src/logger"
	"option-guide/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// AsyncSQLiteDB journals reference price observations in a local SQLite file.
type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, helpers.NewValidationError("storage.db_path is required for sqlite")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}
	// one writer at a time; the journal is tiny
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS reference_prices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			price REAL NOT NULL,
			observed_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create reference_prices", err)
	}
	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_reference_prices_observed ON reference_prices (observed_at)`); err != nil {
		return helpers.NewDatabaseError("create reference_prices index", err)
	}
	d.Logger.Info("SQLite journal ready at %s", d.Config.Storage.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveQuote(q models.MQuote) error {
	if d.DB == nil {
		return helpers.NewDatabaseError("save quote", errNotInitialized)
	}
	_, err := d.DB.Exec(
		`INSERT INTO reference_prices (source, price, observed_at) VALUES (?, ?, ?)`,
		q.Source, q.Price, observedMillis(q),
	)
	if err != nil {
		return helpers.NewDatabaseError("save quote", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LatestQuote() (models.MQuote, bool, error) {
	if d.DB == nil {
		return models.MQuote{}, false, helpers.NewDatabaseError("latest quote", errNotInitialized)
	}
	row := d.DB.QueryRow(`SELECT source, price, observed_at FROM reference_prices ORDER BY observed_at DESC, id DESC LIMIT 1`)
	return scanQuote(row)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData(retention time.Duration) error {
	if d.DB == nil {
		return helpers.NewDatabaseError("cleanup", errNotInitialized)
	}
	cutoff := time.Now().Add(-retention).UnixMilli()
	res, err := d.DB.Exec("DELETE FROM reference_prices WHERE observed_at < ?", cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup reference_prices", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Info("Cleanup removed %d quotes older than %s", n, retention)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) String() string {
	return fmt.Sprintf("sqlite(%s)", d.Config.Storage.DBPath)
}
