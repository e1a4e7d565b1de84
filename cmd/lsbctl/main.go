// Command lsbctl is the Ops CLI (C14): migrate, seed a guild's equipment,
// run the worker loop standalone, force a guild's channel reconcile, or
// dump a CSV export, all against the same Store/worker wiring main.go
// uses.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lsbgear/cmd/lsbctl/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lsbctl",
		Short: "Operations CLI for the lsbgear reservation service",
	}

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.SeedCmd())
	rootCmd.AddCommand(cli.WorkerCmd())
	rootCmd.AddCommand(cli.ReconcileCmd())
	rootCmd.AddCommand(cli.ExportCSVCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("lsbctl: %v", err))
		os.Exit(1)
	}
}
