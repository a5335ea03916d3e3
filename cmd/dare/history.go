package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/pkg/surface"
)

func newHistoryCmd() *cobra.Command {
	var opts historyOpts

	cmd := &cobra.Command{
		Use:   "history <candidate-id>",
		Short: "List stored score snapshots of a candidate, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.candidateID = args[0]
			return runHistory(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite", "Store driver: sqlite or postgres")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "Postgres connection string (default: $DARE_DATABASE_URL)")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite-path", ".dare/dare.db", "SQLite database file")
	cmd.Flags().IntVar(&opts.limit, "limit", store.DefaultHistoryLimit, "Maximum snapshots to list")
	cmd.Flags().StringVar(&opts.outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

type historyOpts struct {
	candidateID string
	driver      string
	databaseURL string
	sqlitePath  string
	limit       int
	outputFmt   string
}

func runHistory(ctx context.Context, w io.Writer, opts historyOpts) error {
	st, err := store.Open(ctx, store.Options{
		Driver:      opts.driver,
		DatabaseURL: firstNonEmpty(opts.databaseURL, envDatabaseURL()),
		SQLitePath:  opts.sqlitePath,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetCandidate(ctx, opts.candidateID); err != nil {
		return fmt.Errorf("candidate %s: %w", opts.candidateID, err)
	}
	history, err := st.ListSnapshots(ctx, opts.candidateID, store.ClampLimit(opts.limit))
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	if opts.outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}
	return (&surface.TerminalRenderer{}).RenderHistory(w, history)
}
