package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/plugsync/internal/infrastructure/config"
	"github.com/nerrad567/plugsync/internal/infrastructure/database"
)

var errDatabaseDisabled = errors.New("database is disabled in the configuration")

func newMigrateCmd(cfgFile *string) *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the state history database schema",
	}

	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, *cfgFile, func(db *database.DB) error {
					if err := db.Migrate(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, *cfgFile, func(db *database.DB) error {
					if err := db.MigrateDown(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "latest migration rolled back")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, *cfgFile, func(db *database.DB) error {
					return printMigrationStatus(cmd, db)
				})
			},
		},
	)
	return migrate
}

// withDatabase opens the configured database for the duration of fn.
func withDatabase(cmd *cobra.Command, cfgFile string, fn func(db *database.DB) error) error {
	cfg, err := config.Load(getConfigPath(cfgFile))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Database.Enabled {
		return errDatabaseDisabled
	}

	db, err := database.Open(cmd.Context(), database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	return fn(db)
}

func printMigrationStatus(cmd *cobra.Command, db *database.DB) error {
	applied, pending, err := db.MigrationStatus(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
	for _, r := range applied {
		fmt.Fprintf(tw, "%s\t\t%s\n", r.Version, r.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(tw, "%s\t%s\tpending\n", m.Version, m.Name)
	}
	return tw.Flush()
}
