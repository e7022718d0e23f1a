package commands

import (
	"fmt"

	"github.com/marmos91/amftpd/pkg/fsck"
	"github.com/spf13/cobra"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Check store integrity",
}

func init() {
	fsckCmd.AddCommand(fsckUsersCmd)
	fsckCmd.AddCommand(fsckGroupsCmd)
	fsckCmd.AddCommand(fsckSectionsCmd)
	fsckCmd.AddCommand(fsckDeepCmd)
}

func runFsck(result *fsck.Result) error {
	printFsckResult(result)
	if !result.Healthy() && len(result.Errors) > 0 {
		return fmt.Errorf("fsck found %d error(s)", len(result.Errors))
	}
	return nil
}

func printFsckResult(result *fsck.Result) {
	if result.Healthy() {
		fmt.Println("store is healthy")
		return
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %s\n", e)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

var fsckUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Check the user store's structural integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)
		return runFsck(db.FsckUsers())
	},
}

var fsckGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Check the group store's structural integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)
		return runFsck(db.FsckGroups())
	},
}

var fsckSectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "Check the section store's structural integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)
		return runFsck(db.FsckSections())
	},
}

var fsckDeepCmd = &cobra.Command{
	Use:   "deep",
	Short: "Check cross-store referential integrity (group members, credits, primary groups)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)
		return runFsck(db.FsckDeep())
	},
}
