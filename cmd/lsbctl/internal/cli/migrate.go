package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lsbgear/db"
)

// MigrateCmd runs db.Connect (which AutoMigrates internally) against
// DATABASE_URL and exits -- useful for a deploy step that wants migrations
// applied before the service starts, separate from the first app.MustNew.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn := db.Connect(dsn())
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			fmt.Println(color.GreenString("migrate: schema is up to date"))
			return nil
		},
	}
}
