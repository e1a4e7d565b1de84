package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lsbgear/db"
	"lsbgear/models"
)

// SeedCmd creates (or reuses) a guild and a comma-separated list of
// equipment names under it -- the CLI's answer to the dashboard having no
// "create equipment" endpoint of its own, matching §1's scope of equipment
// management staying admin-side rather than self-service.
func SeedCmd() *cobra.Command {
	var guildID int64
	var equipmentCSV string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a guild with equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 {
				return fmt.Errorf("--guild is required")
			}
			conn := db.Connect(dsn())
			store := db.NewStore(conn)
			ctx := context.Background()

			guild, err := store.GetOrCreateGuild(ctx, guildID)
			if err != nil {
				return err
			}
			fmt.Println(color.GreenString("guild %d ready", guild.ID))

			for _, name := range strings.Split(equipmentCSV, ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				eq := &models.Equipment{GuildID: guildID, Name: name, Status: models.EquipmentAvailable}
				if err := store.CreateEquipment(ctx, eq); err != nil {
					fmt.Println(color.YellowString("skip %q: %v", name, err))
					continue
				}
				fmt.Println(color.GreenString("created equipment %q (id=%d)", name, eq.ID))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild ID to seed (required)")
	cmd.Flags().StringVar(&equipmentCSV, "equipment", "", "comma-separated equipment names to create")
	return cmd
}
