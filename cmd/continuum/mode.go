package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/continuum/internal/logging"
)

func newModeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mode <workspace>",
		Short: "Print the current operating mode of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.engine()
			if err != nil {
				return err
			}

			res := engine.ResolveMode(cmd.Context(), args[0])
			logging.WithWorkspace(c.logger, args[0]).Debug("mode resolved", "mode", res.Mode, "reasons", res.Reasons)

			out := cmd.OutOrStdout()
			if c.jsonOut {
				return writeJSON(out, map[string]any{
					"workspace": args[0],
					"mode":      res.Mode,
					"reasons":   res.Reasons,
					"readiness": res.Readiness,
				})
			}

			fmt.Fprintln(out, res.Mode)
			for _, r := range res.Reasons {
				fmt.Fprintf(out, "  - %s\n", r)
			}
			return nil
		},
	}
}
