// Package commands implements the amftpd daemon's CLI: initializing a
// store directory and configuration, and starting the core online
// (zipscript + encrypted stores) process.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and Date are injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "amftpd",
	Short: "amftpd - an FTP daemon with scene-style ratio and nuke accounting",
	Long: `amftpd manages the encrypted user, group, and section stores and
the zipscript release-tracking engine that back an FTP daemon's
accounting layer.

Use "amftpd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string {
	return cfgFile
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/amftpd/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("amftpd %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
