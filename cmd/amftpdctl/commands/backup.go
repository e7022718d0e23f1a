package commands

import (
	"fmt"

	"github.com/marmos91/amftpd/internal/cli/prompt"
	"github.com/marmos91/amftpd/pkg/database"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a portable encrypted backup of a store snapshot",
}

func init() {
	backupCmd.AddCommand(backupUsersCmd)
	backupCmd.AddCommand(backupGroupsCmd)
	backupCmd.AddCommand(backupSectionsCmd)
}

func runBackup(destPath string, backup func(db *database.Manager, destPath, password string) error) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	password, err := prompt.PasswordWithConfirmation("Backup password: ", "Confirm backup password: ", 8)
	if err != nil {
		return fmt.Errorf("read backup password: %w", err)
	}

	if err := backup(db, destPath, password); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	fmt.Printf("backup written to %s\n", destPath)
	return nil
}

var backupUsersCmd = &cobra.Command{
	Use:   "users <file>",
	Short: "Back up the user store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup(args[0], func(db *database.Manager, destPath, password string) error {
			return db.BackupUsers(destPath, password)
		})
	},
}

var backupGroupsCmd = &cobra.Command{
	Use:   "groups <file>",
	Short: "Back up the group store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup(args[0], func(db *database.Manager, destPath, password string) error {
			return db.BackupGroups(destPath, password)
		})
	},
}

var backupSectionsCmd = &cobra.Command{
	Use:   "sections <file>",
	Short: "Back up the section store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup(args[0], func(db *database.Manager, destPath, password string) error {
			return db.BackupSections(destPath, password)
		})
	},
}
