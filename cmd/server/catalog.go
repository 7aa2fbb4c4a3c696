package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"studentreg/internal/catalog"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "catalog [degree]",
		Short: "Print the degree catalog, or the options of one degree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(nil)
			if err != nil {
				return err
			}
			c, err := loadCatalog(cfg.CatalogPath)
			if err != nil {
				return err
			}

			degrees := c.Degrees()
			if len(args) == 1 {
				d, ok := c.Degree(args[0])
				if !ok {
					return fmt.Errorf("unknown degree %q (known: %s)", args[0], strings.Join(c.Codes(), ", "))
				}
				degrees = []catalog.Degree{d}
			}
			return printDegrees(cmd, output, degrees)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func printDegrees(cmd *cobra.Command, output string, degrees []catalog.Degree) error {
	out := cmd.OutOrStdout()
	switch output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(degrees)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(map[string]any{"degrees": degrees})
	case "table":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tLABEL\tYEARS\tSTREAMS")
		for _, d := range degrees {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.Code, d.Label, len(d.Years), strings.Join(d.Streams, ", "))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
