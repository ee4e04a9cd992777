package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raizel-hub/academic-assistant/internal/bootstrap"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/persistence/postgres"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT
// ══════════════════════════════════════════════════════════════════════════════

func newImportCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the Postgres record tables with the contents of the CSV files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Records.Dir = dir
			}
			ctx := cmd.Context()

			conn, err := bootstrap.Connect(ctx, cfg, a.log)
			if err != nil {
				return err
			}
			defer conn.Close()

			if _, err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			result, err := postgres.NewImporter(conn, a.log).Import(ctx, bootstrap.OpenCSV(cfg, a.log))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, table := range student.AllTables {
				fmt.Fprintf(out, "%s: %d rows\n", table, result[table])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the record files (default RECORDS_DIR)")
	return cmd
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATE
// ══════════════════════════════════════════════════════════════════════════════

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd, a, func(conn *postgres.Connection) error {
				n, err := postgres.NewMigrator(conn).Migrate(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd, a, func(conn *postgres.Connection) error {
				migrations, err := postgres.NewMigrator(conn).Status(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
				for _, m := range migrations {
					applied := "no"
					if m.IsApplied {
						applied = m.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Version, m.Name, applied)
				}
				return tw.Flush()
			})
		},
	})
	return cmd
}

func withConnection(cmd *cobra.Command, a *app, fn func(*postgres.Connection) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	conn, err := bootstrap.Connect(cmd.Context(), cfg, a.log)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}
