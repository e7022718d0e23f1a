package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/marmos91/amftpd/internal/cli/output"
	"github.com/marmos91/amftpd/pkg/accounts"
	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var groupOutput string

func init() {
	groupCmd.PersistentFlags().StringVarP(&groupOutput, "output", "o", "table", "Output format (table|json|yaml)")

	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupRenameCmd)
	groupCmd.AddCommand(groupMembersCmd)
	groupCmd.AddCommand(groupCreditCmd)
}

var groupAddCmd = &cobra.Command{
	Use:   "add <groupname>",
	Short: "Create a new group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if _, ok := db.Groups().Find(args[0]); ok {
			return fmt.Errorf("group %q already exists", args[0])
		}

		group := accounts.Group{Name: args[0], SectionCredits: map[string]int64{}}
		if err := db.Groups().TryAdd(group); err != nil {
			return fmt.Errorf("add group: %w", err)
		}
		fmt.Printf("group %q created\n", args[0])
		return nil
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:     "delete <groupname>",
	Aliases: []string{"remove"},
	Short:   "Delete a group",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if err := db.Groups().TryDelete(args[0]); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		fmt.Printf("group %q deleted\n", args[0])
		return nil
	},
}

var groupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		format, err := output.ParseFormat(groupOutput)
		if err != nil {
			return err
		}

		groups := db.Groups().All()

		switch format {
		case output.FormatJSON:
			return output.PrintJSON(os.Stdout, groups)
		case output.FormatYAML:
			return output.PrintYAML(os.Stdout, groups)
		default:
			printGroupTable(groups)
		}
		return nil
	},
}

func printGroupTable(groups []accounts.Group) {
	if len(groups) == 0 {
		fmt.Println("no groups configured")
		return
	}
	fmt.Printf("%-20s %-8s %s\n", "NAME", "MEMBERS", "DESCRIPTION")
	fmt.Println(strings.Repeat("-", 60))
	for _, g := range groups {
		fmt.Printf("%-20s %-8d %s\n", g.Name, len(g.Users), g.Description)
	}
}

var groupRenameCmd = &cobra.Command{
	Use:   "rename <groupname> <newname>",
	Short: "Rename a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if err := db.Groups().TryRename(args[0], args[1]); err != nil {
			return fmt.Errorf("rename group: %w", err)
		}
		fmt.Printf("group %q renamed to %q\n", args[0], args[1])
		return nil
	},
}

var groupMembersCmd = &cobra.Command{
	Use:   "members <groupname>",
	Short: "List the members of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		group, ok := db.Groups().Find(args[0])
		if !ok {
			return fmt.Errorf("group %q not found", args[0])
		}

		if len(group.Users) == 0 {
			fmt.Printf("group %q has no members\n", args[0])
			return nil
		}
		fmt.Printf("members of group %q:\n", args[0])
		for _, name := range group.Users {
			fmt.Printf("  - %s\n", name)
		}
		return nil
	},
}

var groupCreditCmd = &cobra.Command{
	Use:   "credit <groupname> <section> <credits_kb>",
	Short: "Set a group's per-section credits (in KB)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		group, ok := db.Groups().Find(args[0])
		if !ok {
			return fmt.Errorf("group %q not found", args[0])
		}
		if _, ok := db.Sections().Find(args[1]); !ok {
			return fmt.Errorf("section %q not found", args[1])
		}

		credits, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid credits_kb %q: %w", args[2], err)
		}

		if group.SectionCredits == nil {
			group.SectionCredits = map[string]int64{}
		}
		group.SectionCredits[args[1]] = credits

		if err := db.Groups().TryUpdate(group); err != nil {
			return fmt.Errorf("update group: %w", err)
		}
		fmt.Printf("set %q credits for group %q in section %q\n", args[2], args[0], args[1])
		return nil
	},
}
