package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/continuum"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of continuum",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "continuum version %s\n", continuum.Version)
		},
	}
}
