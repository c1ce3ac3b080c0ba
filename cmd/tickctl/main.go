//go:build !tinygo

// Command tickctl runs the scheduler on a host board and inspects the
// result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tickctl",
		Short:         "Run and inspect the tick scheduler on a virtual Cortex-M",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newLayoutCmd(), newTraceCmd(), newVersionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "tickctl:", err)
		os.Exit(1)
	}
}
