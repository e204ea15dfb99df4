// Command baseparts builds the base part catalog from a blueprint directory
// and serves it to placement tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configsDir string
	tuningPath string
	verbose    bool
	dev        bool
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "baseparts",
		Short: "Classify and index base part blueprints",
		Long: `baseparts loads the blueprints listed in <configs>/basepartnames, classifies
each one as a core part, an independent part or a part that needs a resource,
and ranks every group cheapest first.

Examples:
  baseparts load --configs ./configs
  baseparts query --resource item:copper --limit 3
  baseparts query --class core --json
  baseparts index --db ./data/index.db
  baseparts serve --listen :8080`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configsDir, "configs", defaultConfigsDir(),
		"Directory holding tuning.yaml, content catalogs and blueprints")
	rootCmd.PersistentFlags().StringVar(&g.tuningPath, "tuning", "",
		"Path to tuning.yaml (default <configs>/tuning.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&g.dev, "dev", false,
		"Human-readable console logs")

	rootCmd.AddCommand(newLoadCommand(g))
	rootCmd.AddCommand(newQueryCommand(g))
	rootCmd.AddCommand(newIndexCommand(g))
	rootCmd.AddCommand(newServeCommand(g))

	return rootCmd
}

func defaultConfigsDir() string {
	if dir := os.Getenv("BASEPARTS_CONFIGS"); dir != "" {
		return dir
	}
	return "./configs"
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
