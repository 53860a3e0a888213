package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration and the files it came from",
	Long: `Print the settings sequences are opened with after layering the global
config, the project .frameseq.json, --config and command line flags.`,
	Args: cobra.NoArgs,
	Example: `  frameseq config
  frameseq config --config ci.json --prefetch 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printConfig(cmd.OutOrStdout(), activeConfig, activeSources)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func printConfig(out io.Writer, cfg Config, sources ConfigSources) error {
	for _, src := range []struct{ name, path string }{
		{"global", sources.Global},
		{"project", sources.Project},
		{"explicit", sources.Explicit},
	} {
		path := src.path
		if path == "" {
			path = "(none)"
		}
		if _, err := fmt.Fprintf(out, "# %-8s %s\n", src.name, path); err != nil {
			return err
		}
	}

	formatted, err := FormatConfig(cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, formatted)
	return err
}
