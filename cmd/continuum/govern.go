package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGovernCmd(c *cli) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "govern <document-id>",
		Short: "Put a document under change control (or take it off with --off)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.engine()
			if err != nil {
				return err
			}

			governed := !off
			if err := engine.SetGoverned(cmd.Context(), args[0], governed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: governed=%t\n", args[0], governed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Clear the governed flag")
	return cmd
}
