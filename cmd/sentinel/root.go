// Package main is the sentinel server entrypoint: a cobra root command
// wiring configuration, the tuple store, result cache, zookie manager, and
// the HTTP request orchestrator (SPEC_FULL.md §5.7, spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentinel",
		Short: "sentinel is a Zanzibar-style centralized authorization service",
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	execute()
}
