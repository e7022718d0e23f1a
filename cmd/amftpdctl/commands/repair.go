package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Apply idempotent repairs and force-rewrite all store snapshots",
	Long: `repair removes dangling group members, clears references to
deleted sections, and force-rewrites the users/groups/sections
snapshots, truncating their WALs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if err := db.Repair(); err != nil {
			return fmt.Errorf("repair: %w", err)
		}
		fmt.Println("repair complete")
		return nil
	},
}
