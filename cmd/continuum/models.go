package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/continuum/pkg/registry"
)

func newModelsCmd(c *cli) *cobra.Command {
	var (
		provider     string
		capabilities bool
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models of the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.engine()
			if err != nil {
				return err
			}

			res, err := engine.LoadRegistry(cmd.Context())
			if err != nil {
				return err
			}

			models := res.Registry.Models
			if provider != "" {
				models = res.Registry.ModelsByProvider(provider)
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				if capabilities {
					return writeJSON(out, res.Registry.Capabilities())
				}
				return writeJSON(out, map[string]any{
					"source":      res.Source,
					"error":       res.Error,
					"documentKey": res.DocumentKey,
					"models":      models,
				})
			}

			if capabilities {
				for _, capability := range res.Registry.Capabilities() {
					fmt.Fprintln(out, capability)
				}
				return nil
			}

			source := string(res.Source)
			if res.DocumentKey != "" {
				source += " (" + res.DocumentKey + ")"
			}
			fmt.Fprintf(out, "source: %s\n", source)
			if res.Error != "" {
				fmt.Fprintf(out, "warning: %s\n", res.Error)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROVIDER\tSTATUS\tCAPABILITIES")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.ProviderID, statusLabel(m.Status), strings.Join(m.Capabilities, ","))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Only list models of this provider")
	cmd.Flags().BoolVar(&capabilities, "capabilities", false, "List the distinct capabilities instead")
	return cmd
}

func statusLabel(s registry.Status) string {
	if s == "" {
		return "-"
	}
	return string(s)
}
