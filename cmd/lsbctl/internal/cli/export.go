package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lsbgear/csvexport"
	"lsbgear/db"
)

// ExportCSVCmd writes the same §6 reservation CSV the dashboard's signed
// export link produces, directly to a file -- for an ops cron job rather
// than a browser download.
func ExportCSVCmd() *cobra.Command {
	var guildID int64
	var out string

	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Export a guild's reservations to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 {
				return fmt.Errorf("--guild is required")
			}
			conn := db.Connect(dsn())
			store := db.NewStore(conn)
			rows, err := store.ListForExport(context.Background(), db.ExportFilter{GuildID: guildID})
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := csvexport.Write(f, rows); err != nil {
				return err
			}
			fmt.Println(color.GreenString("export-csv: wrote %d rows to %s", len(rows), out))
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild ID to export (required)")
	cmd.Flags().StringVar(&out, "out", "reservations.csv", "output file path")
	return cmd
}
