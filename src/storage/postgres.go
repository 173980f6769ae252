package storage

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"option-guide/src/helpers"
	"option-guide/src/logger"
	"option-guide/src/models"

	_ "github.com/lib/pq"
)

var schemaPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// -----------------------------------------------------------------------------

// PostgresDB journals reference price observations in a schema named after
// the service.
type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if cfg.Storage.DBConnectionString == "" {
		return nil, helpers.NewValidationError("storage.db_connection_string is required for postgres")
	}
	schema := SchemaName(cfg.Name)
	if !schemaPattern.MatchString(schema) {
		return nil, helpers.NewValidationError("invalid postgres schema name '%s'", schema)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PostgresDB{
		Config: cfg,
		Schema: schema,
		Logger: log,
	}, nil
}

// SchemaName derives a schema identifier from the service name.
func SchemaName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "option_guide"
	}
	return strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}
	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}
	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table() string {
	return fmt.Sprintf(`"%s"."reference_prices"`, d.Schema)
}

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			observed_at BIGINT NOT NULL
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create reference_prices", err)
	}
	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS reference_prices_observed_idx ON %s (observed_at)`, d.table())
	if _, err := d.DB.Exec(index); err != nil {
		return helpers.NewDatabaseError("create reference_prices index", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveQuote(q models.MQuote) error {
	if d.DB == nil {
		return helpers.NewDatabaseError("save quote", errNotInitialized)
	}
	query := fmt.Sprintf(`INSERT INTO %s (source, price, observed_at) VALUES ($1, $2, $3)`, d.table())
	if _, err := d.DB.Exec(query, q.Source, q.Price, observedMillis(q)); err != nil {
		return helpers.NewDatabaseError("save quote", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LatestQuote() (models.MQuote, bool, error) {
	if d.DB == nil {
		return models.MQuote{}, false, helpers.NewDatabaseError("latest quote", errNotInitialized)
	}
	query := fmt.Sprintf(`SELECT source, price, observed_at FROM %s ORDER BY observed_at DESC, id DESC LIMIT 1`, d.table())
	return scanQuote(d.DB.QueryRow(query))
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(retention time.Duration) error {
	if d.DB == nil {
		return helpers.NewDatabaseError("cleanup", errNotInitialized)
	}
	cutoff := time.Now().Add(-retention).UnixMilli()
	res, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE observed_at < $1`, d.table()), cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup reference_prices", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Info("Cleanup removed %d quotes older than %s", n, retention)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
