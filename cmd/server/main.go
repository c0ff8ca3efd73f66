// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/quickres/quickres/internal/config"
	"github.com/quickres/quickres/internal/database"
	"github.com/quickres/quickres/internal/server"
)

func main() {
	// Optional .env file for local development
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:   "quickres",
		Usage:  "Event reservation service",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Manage database migrations",
				Commands: []*cli.Command{
					{
						Name:   "down",
						Usage:  "Roll back the last migration",
						Flags:  config.Flags(),
						Action: migrateAction(database.MigrateDown),
					},
					{
						Name:   "reset",
						Usage:  "Roll back all migrations",
						Flags:  config.Flags(),
						Action: migrateAction(database.MigrateReset),
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// migrateAction opens the configured database and applies the given
// migration step. Open itself migrates up, so "up" needs no subcommand.
func migrateAction(step func(*sql.DB) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		db, err := database.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		return step(db.DB)
	}
}
