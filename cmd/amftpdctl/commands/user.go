package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/amftpd/internal/cli/output"
	"github.com/marmos91/amftpd/internal/cli/prompt"
	"github.com/marmos91/amftpd/pkg/accounts"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userOutput string

func init() {
	userCmd.PersistentFlags().StringVarP(&userOutput, "output", "o", "table", "Output format (table|json|yaml)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userGrantCmd)
	userCmd.AddCommand(userRevokeCmd)
	userCmd.AddCommand(userGroupsCmd)
	userCmd.AddCommand(userJoinCmd)
	userCmd.AddCommand(userLeaveCmd)
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a new user (prompts for password)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		name := args[0]
		if _, ok := db.Users().Find(name); ok {
			return fmt.Errorf("user %q already exists", name)
		}

		password, err := prompt.NewPassword()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		hash, err := accounts.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user := accounts.User{
			Name:         name,
			PasswordHash: hash,
			HomeDir:      "/",
		}
		user.SetUpload(true)
		user.SetDownload(true)

		if err := db.Users().TryAdd(user); err != nil {
			return fmt.Errorf("add user: %w", err)
		}

		fmt.Printf("user %q created\n", name)
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"remove"},
	Short:   "Delete a user",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if err := db.Users().TryDelete(args[0]); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		fmt.Printf("user %q deleted\n", args[0])
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		format, err := output.ParseFormat(userOutput)
		if err != nil {
			return err
		}

		users := db.Users().All()

		switch format {
		case output.FormatJSON:
			return output.PrintJSON(os.Stdout, users)
		case output.FormatYAML:
			return output.PrintYAML(os.Stdout, users)
		default:
			printUserTable(users)
		}
		return nil
	},
}

func printUserTable(users []accounts.User) {
	if len(users) == 0 {
		fmt.Println("no users configured")
		return
	}
	fmt.Printf("%-20s %-8s %-10s %-10s %s\n", "NAME", "ADMIN", "UPLOAD", "DOWNLOAD", "GROUP")
	fmt.Println(strings.Repeat("-", 66))
	for _, u := range users {
		fmt.Printf("%-20s %-8t %-10t %-10t %s\n", u.Name, u.IsAdmin(), u.AllowsUpload(), u.AllowsDownload(), u.PrimaryGroup)
	}
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Change a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		user, ok := db.Users().Find(args[0])
		if !ok {
			return fmt.Errorf("user %q not found", args[0])
		}

		password, err := prompt.NewPassword()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		hash, err := accounts.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash

		if err := db.Users().TryUpdate(user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		fmt.Printf("password changed for user %q\n", args[0])
		return nil
	},
}

var userGrantCmd = &cobra.Command{
	Use:   "grant <username> <permission>",
	Short: "Grant a permission flag to a user (admin|fxp|upload|download|active|ident)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error { return setUserFlag(args[0], args[1], true) },
}

var userRevokeCmd = &cobra.Command{
	Use:   "revoke <username> <permission>",
	Short: "Revoke a permission flag from a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error { return setUserFlag(args[0], args[1], false) },
}

func setUserFlag(username, flag string, on bool) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	user, ok := db.Users().Find(username)
	if !ok {
		return fmt.Errorf("user %q not found", username)
	}

	switch strings.ToLower(flag) {
	case "admin":
		user.SetAdmin(on)
	case "fxp":
		user.SetFXP(on)
	case "upload":
		user.SetUpload(on)
	case "download":
		user.SetDownload(on)
	case "active":
		user.SetActiveMode(on)
	case "ident":
		user.SetRequireIdent(on)
	default:
		return fmt.Errorf("unknown permission %q (valid: admin, fxp, upload, download, active, ident)", flag)
	}

	if err := db.Users().TryUpdate(user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	verb := "granted"
	if !on {
		verb = "revoked"
	}
	fmt.Printf("%s %q for user %q\n", verb, flag, username)
	return nil
}

var userGroupsCmd = &cobra.Command{
	Use:   "groups <username>",
	Short: "List the groups a user belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if _, ok := db.Users().Find(args[0]); !ok {
			return fmt.Errorf("user %q not found", args[0])
		}

		var memberOf []string
		for _, g := range db.Groups().All() {
			for _, member := range g.Users {
				if member == args[0] {
					memberOf = append(memberOf, g.Name)
					break
				}
			}
		}

		if len(memberOf) == 0 {
			fmt.Printf("user %q is not a member of any groups\n", args[0])
			return nil
		}
		fmt.Printf("groups for user %q:\n", args[0])
		for _, name := range memberOf {
			fmt.Printf("  - %s\n", name)
		}
		return nil
	},
}

var userJoinCmd = &cobra.Command{
	Use:   "join <username> <group>",
	Short: "Add a user to a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error { return changeGroupMembership(args[0], args[1], true) },
}

var userLeaveCmd = &cobra.Command{
	Use:   "leave <username> <group>",
	Short: "Remove a user from a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error { return changeGroupMembership(args[0], args[1], false) },
}

func changeGroupMembership(username, groupName string, join bool) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	if _, ok := db.Users().Find(username); !ok {
		return fmt.Errorf("user %q not found", username)
	}
	group, ok := db.Groups().Find(groupName)
	if !ok {
		return fmt.Errorf("group %q not found", groupName)
	}

	if join {
		for _, member := range group.Users {
			if member == username {
				fmt.Printf("user %q is already a member of %q\n", username, groupName)
				return nil
			}
		}
		group.Users = append(group.Users, username)
	} else {
		filtered := group.Users[:0]
		for _, member := range group.Users {
			if member != username {
				filtered = append(filtered, member)
			}
		}
		group.Users = filtered
	}

	if err := db.Groups().TryUpdate(group); err != nil {
		return fmt.Errorf("update group: %w", err)
	}

	verb := "added to"
	if !join {
		verb = "removed from"
	}
	fmt.Printf("user %q %s group %q\n", username, verb, groupName)
	return nil
}
