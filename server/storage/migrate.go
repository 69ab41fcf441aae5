package storage

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/storage/migrations"
	"github.com/tablekit/tablekit/server/storage/systypes"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Migration is implemented by every versioned migration file.
type Migration interface {
	Version() int
	Name() string
	Description() string
	Up(ctx context.Context, tx bun.Tx) error
}

// MigrationStatus represents the status of an applied migration
type MigrationStatus struct {
	Version   int    `json:"version"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	AppliedAt string `json:"applied_at"`
}

// MigrationManager applies the system-table migrations through bun.
// All pending migrations run inside one transaction: either the whole set
// applies or none of it does.
type MigrationManager struct {
	db     *bun.DB
	driver string
	logger zerolog.Logger
}

// NewMigrationManager wraps an already-open database handle with bun,
// using the dialect matching the configured driver.
func NewMigrationManager(sqldb *sql.DB, driver string, logger zerolog.Logger) (*MigrationManager, error) {
	var db *bun.DB
	switch driver {
	case "sqlite":
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case "mysql":
		db = bun.NewDB(sqldb, mysqldialect.New())
	default:
		return nil, errors.Newf(ErrUnsupportedDriver, "unsupported storage driver %q", driver)
	}
	return &MigrationManager{
		db:     db,
		driver: driver,
		logger: logger.With().Str("component", "migrations").Logger(),
	}, nil
}

// MigrateToLatest runs all pending migrations
func (mm *MigrationManager) MigrateToLatest(ctx context.Context) error {
	currentVersion, err := mm.GetCurrentVersion(ctx)
	if err != nil {
		return errors.New(ErrMigrationFailed, "failed to get current version", err)
	}

	var pending []Migration
	for _, migration := range availableMigrations() {
		if migration.Version() > currentVersion {
			pending = append(pending, migration)
		}
	}

	if len(pending) == 0 {
		mm.logger.Debug().Int("version", currentVersion).Msg("No pending migrations")
		return nil
	}

	tx, err := mm.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(ErrMigrationFailed, "failed to begin transaction for migrations", err)
	}

	for _, migration := range pending {
		mm.logger.Info().Int("version", migration.Version()).Str("name", migration.Name()).Msg("Running migration")

		if err := migration.Up(ctx, tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				mm.logger.Warn().Err(rbErr).Msg("Failed to rollback migration transaction")
			}
			return errors.New(ErrMigrationFailed, "migration failed", err).
				AddContext("version", strconv.Itoa(migration.Version())).
				AddContext("name", migration.Name())
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, migration := range pending {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)
		`, migration.Version(), migration.Name(), now); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				mm.logger.Warn().Err(rbErr).Msg("Failed to rollback migration transaction")
			}
			return errors.New(ErrMigrationFailed, "failed to record migration", err).
				AddContext("version", strconv.Itoa(migration.Version()))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.New(ErrMigrationFailed, "failed to commit migrations", err)
	}

	mm.logger.Info().Int("applied", len(pending)).Msg("Migrations completed")
	return nil
}

// availableMigrations returns all known migrations in version order.
func availableMigrations() []Migration {
	return []Migration{
		&migrations.Migration001{},
		// Future migrations are appended here
	}
}

// GetCurrentVersion returns the highest applied migration version.
func (mm *MigrationManager) GetCurrentVersion(ctx context.Context) (int, error) {
	exists, err := mm.tableExists(ctx, "schema_migrations")
	if err != nil {
		return 0, errors.New(ErrMigrationFailed, "failed to check migrations table", err)
	}

	if !exists {
		if _, err := mm.db.NewCreateTable().
			Model((*systypes.SchemaMigration)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return 0, errors.New(ErrMigrationFailed, "failed to create migrations table", err)
		}
		return 0, nil
	}

	var version int
	err = mm.db.NewSelect().
		Column("version").
		Table("schema_migrations").
		Order("version DESC").
		Limit(1).
		Scan(ctx, &version)

	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, errors.New(ErrMigrationFailed, "failed to get current version", err)
	}

	return version, nil
}

// GetMigrationStatus returns the applied-migration history.
func (mm *MigrationManager) GetMigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	exists, err := mm.tableExists(ctx, "schema_migrations")
	if err != nil {
		return nil, errors.New(ErrMigrationFailed, "failed to check migrations table", err)
	}
	if !exists {
		return []MigrationStatus{}, nil
	}

	var applied []systypes.SchemaMigration
	if err := mm.db.NewSelect().
		Model(&applied).
		Order("version ASC").
		Scan(ctx); err != nil {
		return nil, errors.New(ErrMigrationFailed, "failed to query migrations", err)
	}

	status := make([]MigrationStatus, len(applied))
	for i, m := range applied {
		status[i] = MigrationStatus{
			Version:   m.Version,
			Name:      m.Name,
			Status:    "applied",
			AppliedAt: m.AppliedAt,
		}
	}
	return status, nil
}

// VerifySchema checks that every table the migrations own actually exists.
func (mm *MigrationManager) VerifySchema(ctx context.Context) error {
	expectedTables := []string{"schema_migrations", "entity_relationships"}
	for _, table := range expectedTables {
		exists, err := mm.tableExists(ctx, table)
		if err != nil {
			return errors.New(ErrSchemaVerification, "failed to check table", err).AddContext("table", table)
		}
		if !exists {
			return errors.Newf(ErrSchemaVerification, "expected table %q is missing", table)
		}
	}
	return nil
}

func (mm *MigrationManager) tableExists(ctx context.Context, name string) (bool, error) {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	if mm.driver == "mysql" {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	}

	var count int
	if err := mm.db.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

