// Package commands implements the amftpdctl administrative subcommands:
// user/group/section management, fsck/repair, backup/restore, config
// inspection, and daemon status.
package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/amftpd/internal/logger"
	"github.com/marmos91/amftpd/pkg/config"
	"github.com/marmos91/amftpd/pkg/database"
	"github.com/spf13/cobra"
)

// Global flags shared by every subcommand.
var cfgFile string

// GetConfigFile returns the config file path from the persistent --config flag.
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads the effective configuration, falling back to defaults
// when no config file is present.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// openDatabase loads configuration and opens the DatabaseManager against
// the configured store directory, reading the master password from the
// configured password file.
func openDatabase() (*database.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	password, err := readMasterPassword(cfg)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	return database.Open(cfg.Database.StoreDir, password, int64(cfg.Database.WalMaxBytes), logger.Default())
}

// readMasterPassword reads the store encryption password from the
// configured master-password file.
func readMasterPassword(cfg *config.Config) (string, error) {
	if cfg.Database.MasterPasswordFile == "" {
		return "", fmt.Errorf("database.master_password_file is not configured")
	}
	data, err := os.ReadFile(cfg.Database.MasterPasswordFile)
	if err != nil {
		return "", fmt.Errorf("read master password file: %w", err)
	}
	return trimNewline(string(data)), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// closeDatabase closes db, reporting a close failure to stderr without
// masking the command's own error.
func closeDatabase(db *database.Manager) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to close store: %v\n", err)
	}
}

// rootCmd is the base command for amftpdctl.
var rootCmd = &cobra.Command{
	Use:   "amftpdctl",
	Short: "Administer an amftpd user/group/section store",
	Long: `amftpdctl manages the encrypted user, group, and section stores
used by amftpd: account management, integrity checks, and backup/restore.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/amftpd/config.yaml)")

	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(sectionCmd)
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
}
