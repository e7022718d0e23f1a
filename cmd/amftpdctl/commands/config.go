package commands

import (
	"os"
	"strconv"

	"github.com/marmos91/amftpd/internal/cli/output"
	"github.com/marmos91/amftpd/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowOutput string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration amftpd would load, with defaults
applied. By default outputs a table.

Examples:
  amftpdctl config show
  amftpdctl config show -o json
  amftpdctl config show --config /etc/amftpd/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.MustLoad(GetConfigFile())
		if err != nil {
			return err
		}

		format, err := output.ParseFormat(configShowOutput)
		if err != nil {
			return err
		}

		switch format {
		case output.FormatJSON:
			return output.PrintJSON(os.Stdout, cfg)
		case output.FormatYAML:
			return output.PrintYAML(os.Stdout, cfg)
		default:
			printConfigTable(cfg)
			return nil
		}
	},
}

func printConfigTable(cfg *config.Config) {
	pairs := [][2]string{
		{"logging.level", cfg.Logging.Level},
		{"logging.format", cfg.Logging.Format},
		{"logging.output", cfg.Logging.Output},
		{"database.store_dir", cfg.Database.StoreDir},
		{"database.master_password_file", cfg.Database.MasterPasswordFile},
		{"database.wal_max_bytes", cfg.Database.WalMaxBytes.String()},
		{"database.backup_buffer_size", cfg.Database.BackupBufferSize.String()},
		{"zipscript.snapshot_path", cfg.Zipscript.SnapshotPath},
		{"zipscript.flush_threshold", strconv.Itoa(cfg.Zipscript.FlushThreshold)},
		{"admin.username", cfg.Admin.Username},
		{"shutdown_timeout", cfg.ShutdownTimeout.String()},
		{"pid_file", cfg.PidFile},
	}
	_ = output.SimpleTable(os.Stdout, pairs)
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", "table", "Output format (table|json|yaml)")
	configCmd.AddCommand(configShowCmd)
}
