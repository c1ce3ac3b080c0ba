//go:build !tinygo

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickos/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tickctl", buildinfo.String())
		},
	}
}
