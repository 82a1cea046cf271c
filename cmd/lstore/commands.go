package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func parseInt64s(args []string) ([]int64, error) {
	out := make([]int64, len(args))
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q is not an integer: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}

func insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert VALUE...",
		Short: "Insert one row (one value per column)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseInt64s(args)
			if err != nil {
				return err
			}
			q, store, err := openQuery()
			if err != nil {
				return err
			}
			rec, err := q.Insert(values)
			if err != nil {
				closeQuery(q, store, false)
				return err
			}
			fmt.Printf("inserted rid=%d\n", rec.RID)
			return closeQuery(q, store, true)
		},
	}
}

func selectCmd() *cobra.Command {
	var searchCol int
	cmd := &cobra.Command{
		Use:   "select KEY",
		Short: "Select the row(s) matching KEY on --col (default: primary key column)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			q, store, err := openQuery()
			if err != nil {
				return err
			}
			defer closeQuery(q, store, false)

			col := searchCol
			if !cmd.Flags().Changed("col") {
				col = q.Table.PrimaryKeyColumn
			}
			projection := make([]bool, q.Table.NumColumns)
			for i := range projection {
				projection[i] = true
			}
			rows, ok := q.Select(key, col, projection)
			if !ok || len(rows) == 0 {
				fmt.Println("not found")
				return nil
			}
			for _, row := range rows {
				fmt.Printf("rid=%d columns=%v\n", row.RID, row.Columns)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&searchCol, "col", 0, "0-based user column to search on")
	return cmd
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update PK VALUE...",
		Short: "Patch every column of PK's row (one value per column, in order)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			values, err := parseInt64s(args[1:])
			if err != nil {
				return err
			}
			q, store, err := openQuery()
			if err != nil {
				return err
			}

			patch := make([]*int64, len(values))
			for i := range values {
				patch[i] = &values[i]
			}
			ok, err := q.Update(pk, patch)
			if err != nil {
				closeQuery(q, store, false)
				return err
			}
			fmt.Printf("updated=%v\n", ok)
			return closeQuery(q, store, ok)
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete PK",
		Short: "Delete the row with the given primary key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			q, store, err := openQuery()
			if err != nil {
				return err
			}
			deleted := q.Delete(pk)
			fmt.Printf("deleted=%v\n", deleted)
			return closeQuery(q, store, deleted)
		},
	}
}

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Consolidate accumulated tail records into refreshed base images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, store, err := openQuery()
			if err != nil {
				return err
			}
			result, err := q.Table.Merge()
			if err != nil {
				closeQuery(q, store, false)
				return err
			}
			fmt.Printf("tails_processed=%d bases_updated=%d\n", result.TailsProcessed, result.BasesUpdated)
			return closeQuery(q, store, true)
		},
	}
}

func sumCmd() *cobra.Command {
	var col int
	cmd := &cobra.Command{
		Use:   "sum LO HI",
		Short: "Sum --col over primary keys in [LO, HI]",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			hi, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return err
			}
			q, store, err := openQuery()
			if err != nil {
				return err
			}
			defer closeQuery(q, store, false)
			fmt.Println(q.Sum(lo, hi, col))
			return nil
		},
	}
	cmd.Flags().IntVar(&col, "col", 0, "0-based user column to sum")
	return cmd
}
