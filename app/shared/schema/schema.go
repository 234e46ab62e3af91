package schema

import (
	"context"
	"fmt"

	roundmigrations "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/repositories/migrations"
	usermigrations "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Module pairs a module name with its migrator. Each module tracks applied
// migrations in its own table so groups never interleave.
type Module struct {
	Name     string
	Migrator *migrate.Migrator
}

// Migrators returns the module migrators in apply order.
func Migrators(db *bun.DB) []Module {
	newMigrator := func(name string, m *migrate.Migrations) Module {
		return Module{
			Name: name,
			Migrator: migrate.NewMigrator(db, m,
				migrate.WithTableName("bun_migrations_"+name),
				migrate.WithLocksTableName("bun_migration_locks_"+name),
			),
		}
	}
	return []Module{
		newMigrator("user", usermigrations.Migrations),
		newMigrator("round", roundmigrations.Migrations),
	}
}

// MigrateAll initializes and applies every module's migrations.
func MigrateAll(ctx context.Context, db *bun.DB) error {
	for _, m := range Migrators(db) {
		if err := m.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", m.Name, err)
		}
		if _, err := m.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", m.Name, err)
		}
	}
	return nil
}

// Lookup returns the migrator registered under name.
func Lookup(modules []Module, name string) (*migrate.Migrator, bool) {
	for _, m := range modules {
		if m.Name == name {
			return m.Migrator, true
		}
	}
	return nil, false
}
