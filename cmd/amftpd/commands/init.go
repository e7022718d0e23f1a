package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/amftpd/internal/cli/prompt"
	"github.com/marmos91/amftpd/pkg/config"
	"github.com/marmos91/amftpd/pkg/database"
	"github.com/spf13/cobra"
)

var (
	initStoreDir string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a store directory and configuration file",
	Long: `init creates a configuration file and an encrypted store
directory: it prompts for a master password, writes it to the
configured password file, and opens the store once to bootstrap the
default admin user, admins group, and default section.

Examples:
  amftpd init --store-dir /var/lib/amftpd/store
  amftpd init --store-dir /var/lib/amftpd/store --config /etc/amftpd/config.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initStoreDir, "store-dir", "", "Directory for the encrypted stores (required)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initStoreDir == "" {
		return fmt.Errorf("--store-dir is required")
	}

	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.InitConfig(configPath, initStoreDir, initForce)
	if err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}

	password, err := prompt.NewPassword()
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.MasterPasswordFile), 0o700); err != nil {
		return fmt.Errorf("create master password directory: %w", err)
	}
	if err := os.WriteFile(cfg.Database.MasterPasswordFile, []byte(password), 0o600); err != nil {
		return fmt.Errorf("write master password file: %w", err)
	}

	db, err := database.Open(cfg.Database.StoreDir, password, int64(cfg.Database.WalMaxBytes), nil)
	if err != nil {
		return fmt.Errorf("bootstrap store: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close store after bootstrap: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Printf("Store directory bootstrapped at: %s\n", cfg.Database.StoreDir)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Review the configuration file")
	fmt.Printf("  2. Start the daemon with: amftpd start --config %s\n", configPath)
	fmt.Println("  3. Manage accounts with: amftpdctl user|group|section ...")
	return nil
}
