package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"baseparts.ai/internal/protocol"
)

func newLoadCommand(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Build the catalog once and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			reg, err := a.loader.Load()
			if err != nil {
				return err
			}
			sum := protocol.Summary(reg)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "digest\t%s\n", sum.Digest)
			fmt.Fprintf(w, "cores\t%d\n", sum.Stats.Cores)
			fmt.Fprintf(w, "independent\t%d\n", sum.Stats.Independent)
			fmt.Fprintf(w, "required\t%d\n", sum.Stats.Required)
			fmt.Fprintf(w, "conflicts\t%d\n", sum.Stats.Conflicts)
			for _, res := range reg.Resources() {
				fmt.Fprintf(w, "  %s\t%d\n", res, len(reg.ForResource(res)))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}
