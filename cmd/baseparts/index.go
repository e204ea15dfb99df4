package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"baseparts.ai/internal/persistence/indexdb"
)

func newIndexCommand(g *globalFlags) *cobra.Command {
	var (
		dbPath    string
		producers bool
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the catalog and write it to the sqlite read-model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			path := dbPath
			if path == "" {
				path = a.tuning.IndexDB
			}
			if path == "" {
				return fmt.Errorf("no index db configured; pass --db")
			}

			reg, err := a.loader.Load()
			if err != nil {
				return err
			}
			idx, err := indexdb.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.UpsertRegistry(cmd.Context(), reg, a.content); err != nil {
				return fmt.Errorf("index %s: %w", path, err)
			}
			a.log.Info("index written", zap.String("db", path), zap.Int("parts", reg.Len()), zap.String("digest", reg.Digest))
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, reg.Digest)
			if !producers {
				return nil
			}

			// Read back from the index so the listing reflects what was stored.
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tORE\tFLOOR")
			for _, item := range a.content.Items.Palette {
				ore, hasOre, err := idx.Producer(cmd.Context(), "ore", item)
				if err != nil {
					return err
				}
				floor, hasFloor, err := idx.Producer(cmd.Context(), "floor", item)
				if err != nil {
					return err
				}
				if !hasOre && !hasFloor {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", item, orDash(ore), orDash(floor))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite path (default index_db from tuning)")
	cmd.Flags().BoolVar(&producers, "producers", false, "List the indexed ore and floor producer of every item")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
