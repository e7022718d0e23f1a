package commands

import (
	"fmt"

	"github.com/marmos91/amftpd/internal/cli/prompt"
	"github.com/marmos91/amftpd/pkg/database"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a store snapshot from a portable encrypted backup",
	Long: `restore decrypts a backup file and atomically overwrites the
store's on-disk snapshot. The daemon (or any process holding the store
open) must be restarted to pick up the restored data.`,
}

func init() {
	restoreCmd.AddCommand(restoreUsersCmd)
	restoreCmd.AddCommand(restoreGroupsCmd)
	restoreCmd.AddCommand(restoreSectionsCmd)
}

func runRestore(backupPath string, restore func(db *database.Manager, backupPath, password string) error) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	password, err := prompt.Password("Backup password: ")
	if err != nil {
		return fmt.Errorf("read backup password: %w", err)
	}

	if err := restore(db, backupPath, password); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	fmt.Println("restore complete; restart amftpd to pick up the restored snapshot")
	return nil
}

var restoreUsersCmd = &cobra.Command{
	Use:   "users <file>",
	Short: "Restore the user store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRestore(args[0], func(db *database.Manager, backupPath, password string) error {
			return db.RestoreUsers(backupPath, password)
		})
	},
}

var restoreGroupsCmd = &cobra.Command{
	Use:   "groups <file>",
	Short: "Restore the group store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRestore(args[0], func(db *database.Manager, backupPath, password string) error {
			return db.RestoreGroups(backupPath, password)
		})
	},
}

var restoreSectionsCmd = &cobra.Command{
	Use:   "sections <file>",
	Short: "Restore the section store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRestore(args[0], func(db *database.Manager, backupPath, password string) error {
			return db.RestoreSections(backupPath, password)
		})
	},
}
