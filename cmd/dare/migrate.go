package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/darescore/dare/internal/store"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), firstNonEmpty(databaseURL, envDatabaseURL()))
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (default: $DARE_DATABASE_URL)")

	return cmd
}

func runMigrate(ctx context.Context, w io.Writer, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("a database url is required (--database-url or DARE_DATABASE_URL)")
	}
	pg, err := store.OpenPostgres(ctx, dsn, true)
	if err != nil {
		return err
	}
	defer pg.Close()

	v, dirty, err := store.MigrationVersion(pg.DB())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema at version %d", v)
	if dirty {
		fmt.Fprint(w, " (dirty)")
	}
	fmt.Fprintln(w)
	return nil
}

func envDatabaseURL() string {
	return os.Getenv("DARE_DATABASE_URL")
}
