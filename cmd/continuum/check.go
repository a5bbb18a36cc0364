package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/continuum/internal/logging"
	"github.com/aretw0/continuum/pkg/governance"
)

// errDenied makes a denied check exit non-zero, so scripts can gate on it.
var errDenied = errors.New("action denied")

func newCheckCmd(c *cli) *cobra.Command {
	var (
		kind     string
		governed bool
	)

	cmd := &cobra.Command{
		Use:   "check <workspace> <action>",
		Short: "Check whether an action may run in a workspace right now",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.engine()
			if err != nil {
				return err
			}

			d := engine.Authorize(cmd.Context(), args[0], governance.Action{
				Name:     args[1],
				Kind:     governance.ActionKind(kind),
				Governed: governed,
			})

			logging.WithWorkspace(c.logger, args[0]).Debug("action checked", "action", args[1], "allowed", d.Allowed, "mode", d.Mode)

			out := cmd.OutOrStdout()
			if c.jsonOut {
				if err := writeJSON(out, d); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, d.Explanation)
			}
			if !d.Allowed {
				return errDenied
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(governance.ActionMutation), "Action kind: read, advisory or mutation")
	cmd.Flags().BoolVarP(&governed, "governed", "g", false, "The action is governed")
	return cmd
}
