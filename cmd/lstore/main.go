// Command lstore is the thin CLI boundary around the engine: open a table
// (optionally restoring it from a snapshot file), run exactly one
// operation, print the result, optionally snapshot the result back out.
// The CLI/REPL around the engine is deliberately kept out of the core
// packages; this proves the boundary without attempting a full REPL.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coltab/lstore/config"
	"github.com/coltab/lstore/metrics"
	"github.com/coltab/lstore/query"
	"github.com/coltab/lstore/snapshot"
	"github.com/coltab/lstore/table"
)

var (
	tableName  string
	numColumns int
	pkColumn   int
	snapPath   string
)

func main() {
	root := &cobra.Command{
		Use:   "lstore",
		Short: "Run a single operation against an in-memory columnar table",
	}
	root.PersistentFlags().StringVar(&tableName, "table", "t", "table name (used as the snapshot key)")
	root.PersistentFlags().IntVar(&numColumns, "columns", 2, "number of user columns")
	root.PersistentFlags().IntVar(&pkColumn, "pk-col", 0, "0-based primary key column")
	root.PersistentFlags().StringVar(&snapPath, "snapshot", "", "snapshot file to restore from and save to (in-memory only if empty)")

	root.AddCommand(insertCmd(), selectCmd(), updateCmd(), deleteCmd(), sumCmd(), mergeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openQuery() (*query.Query, *snapshot.Store, error) {
	tbl := table.New(tableName, numColumns, pkColumn, config.Default(), zerolog.Nop())
	q := query.NewWithMetrics(tbl, metrics.New(tableName))

	if snapPath == "" {
		return q, nil, nil
	}
	store, err := snapshot.Open(snapPath)
	if err != nil {
		return nil, nil, fmt.Errorf("lstore: open snapshot: %w", err)
	}
	if _, err := store.Restore(q); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("lstore: restore snapshot: %w", err)
	}
	return q, store, nil
}

func closeQuery(q *query.Query, store *snapshot.Store, persist bool) error {
	if store == nil {
		return nil
	}
	defer store.Close()
	if persist {
		if err := store.Save(q.Table); err != nil {
			return fmt.Errorf("lstore: save snapshot: %w", err)
		}
	}
	return nil
}
