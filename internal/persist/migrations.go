package persist

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const journalVersionTable = "turnengine_schema_version"

func useJournalMigrations() error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	goose.SetTableName(journalVersionTable)
	return goose.SetDialect("postgres")
}

// JournalSchemaVersion returns the newest journal migration this binary
// carries.
func JournalSchemaVersion() (int64, error) {
	if err := useJournalMigrations(); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}
	ms, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	if err != nil {
		return 0, fmt.Errorf("collect migrations: %w", err)
	}
	last, err := ms.Last()
	if err != nil {
		return 0, fmt.Errorf("collect migrations: %w", err)
	}
	return last.Version, nil
}

// Migrate brings the journal tables up to date and returns the schema
// version of the database. A database migrated by a newer build is left
// alone; the journal only appends, so older writers keep working.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	want, err := JournalSchemaVersion()
	if err != nil {
		return 0, err
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	before, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	if before > want {
		db.log.Warn("journal schema is newer than this build",
			zap.Int64("database", before),
			zap.Int64("build", want),
		)
		return before, nil
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	after, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	if after != before {
		db.log.Info("journal schema migrated",
			zap.Int64("from", before),
			zap.Int64("to", after),
		)
	}
	return after, nil
}
