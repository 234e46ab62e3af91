package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/Black-And-White-Club/pushup-bot/app"
	roundqueue "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/queue"
	"github.com/Black-And-White-Club/pushup-bot/app/shared/observability"
	"github.com/Black-And-White-Club/pushup-bot/app/shared/schema"
	"github.com/Black-And-White-Club/pushup-bot/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load configuration for database connection ONLY
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := app.OpenDB(cfg.Postgres.DSN)
	defer db.Close()

	logger := observability.NewLogger(os.Stderr, cfg.Observability.LogLevel)
	modules := schema.Migrators(db)

	cliApp := &cli.App{
		Name:  "bun",
		Usage: "pushup-bot database migrations",
		Commands: []*cli.Command{
			newMultiModuleDBCommand(modules, cfg.Postgres.DSN, logger),
		},
	}

	if err := cliApp.Run(append([]string{os.Args[0]}, flag.Args()...)); err != nil {
		log.Fatal(err)
	}
}

func newMultiModuleDBCommand(modules []schema.Module, dsn string, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return forEach(modules, func(m schema.Module) error {
						fmt.Printf("Initializing migrations for module: %s\n", m.Name)
						return m.Migrator.Init(c.Context)
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database, including the River job tables",
				Action: func(c *cli.Context) error {
					err := forEach(modules, func(m schema.Module) error {
						fmt.Printf("Running migrations for module: %s\n", m.Name)
						group, err := m.Migrator.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.Name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", m.Name, group)
						}
						return nil
					})
					if err != nil {
						return err
					}
					return migrateRiver(c.Context, dsn, logger)
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group of each module",
				Action: func(c *cli.Context) error {
					return forEach(reversed(modules), func(m schema.Module) error {
						fmt.Printf("Rolling back migrations for module: %s\n", m.Name)
						group, err := m.Migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.Name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.Name, group)
						}
						return nil
					})
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					migrator, name, err := migratorFromArgs(modules, c)
					if err != nil {
						return err
					}
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", c.Args().First(), mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					return forEach(modules, func(m schema.Module) error {
						ms, err := m.Migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", m.Name)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
						return nil
					})
				},
			},
		},
	}
}

func migrateRiver(ctx context.Context, dsn string, logger *slog.Logger) error {
	fmt.Println("Running River migrations")
	if err := roundqueue.Migrate(ctx, dsn, logger); err != nil {
		return fmt.Errorf("river migrations failed: %w", err)
	}
	return nil
}

func migratorFromArgs(modules []schema.Module, c *cli.Context) (*migrate.Migrator, string, error) {
	moduleName := c.Args().First()
	migrator, ok := schema.Lookup(modules, moduleName)
	if !ok {
		return nil, "", fmt.Errorf("invalid module name: %s", moduleName)
	}
	name := strings.Join(c.Args().Tail(), "_")
	if name == "" {
		return nil, "", fmt.Errorf("migration name is required")
	}
	return migrator, name, nil
}

func forEach(modules []schema.Module, fn func(schema.Module) error) error {
	for _, m := range modules {
		if err := fn(m); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
	}
	return nil
}

func reversed(modules []schema.Module) []schema.Module {
	out := make([]schema.Module, len(modules))
	for i, m := range modules {
		out[len(modules)-1-i] = m
	}
	return out
}
