package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"baseparts.ai/internal/protocol"
	"baseparts.ai/internal/sim/baseparts"
	"baseparts.ai/internal/sim/catalogs"
)

func newQueryCommand(g *globalFlags) *cobra.Command {
	var (
		class    string
		resource string
		limit    int
		cheapest bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List parts of one class, cheapest first",
		Long: `List the parts of one class, cheapest first. Giving --resource implies
--class required. --cheapest prints only the lowest tier part requiring
--resource.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := baseparts.ParseClass(class)
			if err != nil {
				return err
			}
			var res catalogs.Resource
			if resource != "" {
				res, err = catalogs.ParseResource(resource)
				if err != nil {
					return err
				}
				c = baseparts.ClassRequired
			} else if c == baseparts.ClassRequired {
				return fmt.Errorf("--class required needs --resource")
			}
			if cheapest && res.IsZero() {
				return fmt.Errorf("--cheapest needs --resource")
			}
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}

			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			if !res.IsZero() {
				if _, ok := a.content.Resolve(res.Kind, res.ID); !ok {
					a.log.Warn("resource is not in the content catalogs", zap.Stringer("resource", res))
				}
			}

			reg, err := a.loader.Load()
			if err != nil {
				return err
			}
			parts := reg.Select(c, res)
			if cheapest {
				parts = nil
				if p, ok := reg.Cheapest(res); ok {
					parts = []*baseparts.Part{p}
				}
			}
			views := protocol.Views(parts, limit)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTIER\tCENTER\tSIZE\tREQUIRES")
			for _, v := range views {
				req := v.Required
				if v.Core != "" {
					req = v.Core
				}
				if req == "" {
					req = "-"
				}
				fmt.Fprintf(w, "%s\t%.2f\t%d,%d\t%dx%d\t%s\n", v.Name, v.Tier, v.CenterX, v.CenterY, v.Width, v.Height, req)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&class, "class", "independent", "Part class: core, independent or required")
	cmd.Flags().StringVar(&resource, "resource", "", "Required resource, e.g. item:copper or liquid:water")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum parts to print (0 = all)")
	cmd.Flags().BoolVar(&cheapest, "cheapest", false, "Print only the cheapest part requiring --resource")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
