package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/continuum/pkg/core"
)

func newResolveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <key>",
		Short: "Resolve a logical key to its canonical document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.engine()
			if err != nil {
				return err
			}

			m, err := engine.FindMatch(cmd.Context(), args[0])
			if err != nil {
				var nf *core.NotFoundError
				if errors.As(err, &nf) && nf.Cause == nil && len(nf.AvailableKeys) > 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), "Available keys:")
					for _, k := range nf.AvailableKeys {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", k)
					}
				}
				return err
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				return writeJSON(out, map[string]any{
					"document":   m.Document,
					"tier":       m.Tier.String(),
					"candidates": m.Candidates,
				})
			}

			fmt.Fprintf(out, "key:      %s\n", m.Document.Key)
			fmt.Fprintf(out, "id:       %s\n", m.Document.ID)
			fmt.Fprintf(out, "governed: %t\n", m.Document.Governed)
			fmt.Fprintf(out, "tier:     %s\n", m.Tier)
			if m.Ambiguous() {
				fmt.Fprintf(out, "ambiguous, candidates: %s\n", strings.Join(m.Candidates, ", "))
			}
			return nil
		},
	}
}
