package main

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"nyurban_tracker/migrations"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:       "migrate <up|up-one|down|status|version|reset>",
		Short:     "Manage the SQLite state schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "up-one", "down", "status", "version", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = ctx.config.DatabasePath
			}
			return runMigration(dbPath, args[0])
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database (defaults to database_path)")
	return cmd
}

func runMigration(dbPath, name string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Setup(); err != nil {
		return err
	}

	switch name {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		return fmt.Errorf("unknown migrate command %q", name)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
