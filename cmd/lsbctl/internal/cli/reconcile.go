package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/notify"
	"lsbgear/reconcile"
)

// ReconcileCmd forces one full reconcile pass for a guild -- the manual
// escape hatch for §4.5's startup reconcile when something drifted and an
// admin doesn't want to wait for the hourly JobMessageReconcileGuild sweep.
func ReconcileCmd() *cobra.Command {
	var guildID int64

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Force a full channel reconcile for a guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 {
				return fmt.Errorf("--guild is required")
			}
			conn := db.Connect(dsn())
			store := db.NewStore(conn)
			r := reconcile.New(store, notify.NewLogSink(), clock.Real{})
			if err := r.ReconcileGuildStartup(context.Background(), guildID); err != nil {
				return err
			}
			fmt.Println(color.GreenString("reconcile: guild %d done", guildID))
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild ID to reconcile (required)")
	return cmd
}
