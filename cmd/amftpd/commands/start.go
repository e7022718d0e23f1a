package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/marmos91/amftpd/internal/logger"
	"github.com/marmos91/amftpd/pkg/config"
	"github.com/marmos91/amftpd/pkg/database"
	"github.com/marmos91/amftpd/pkg/zipscript"
	"github.com/spf13/cobra"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the amftpd core (stores + zipscript engine)",
	Long: `start opens the DatabaseManager and the zipscript engine and
blocks until signaled. This is the non-protocol "core online" process:
a real FTP daemon would extend it with control/data-connection
listeners, which are not part of this module.

By default the process runs in the background (daemon mode). Use
--foreground to run under a process supervisor or for debugging.

Examples:
  amftpd start
  amftpd start --foreground
  amftpd start --config /etc/amftpd/config.yaml`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/amftpd/amftpd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/amftpd/amftpd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	password, err := readMasterPassword(cfg)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database.StoreDir, password, int64(cfg.Database.WalMaxBytes), logger.Default())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()
	logger.Info("store opened", "dir", cfg.Database.StoreDir)

	engine, err := zipscript.Open(cfg.Zipscript.SnapshotPath, cfg.Zipscript.FlushThreshold, zipscript.Events{}, logger.Default())
	if err != nil {
		return fmt.Errorf("open zipscript engine: %w", err)
	}
	defer func() {
		if err := engine.Flush(); err != nil {
			logger.Error("zipscript flush error", "error", err)
		}
	}()
	logger.Info("zipscript engine opened", "snapshot", cfg.Zipscript.SnapshotPath)

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
			return fmt.Errorf("write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("amftpd core is online, press Ctrl+C to stop")

	select {
	case <-sigCh:
		signal.Stop(sigCh)
		logger.Info("shutdown signal received, flushing state and closing stores")
	case <-ctx.Done():
	}

	return nil
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
	return string(trimNewline(data)), nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// startDaemon re-executes the current binary in foreground mode,
// detached into its own session, with stdout/stderr redirected to a
// log file.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "amftpd.pid")
	}

	if data, err := os.ReadFile(pidPath); err == nil {
		var pid int
		if _, err := fmt.Sscanf(string(data), "%d", &pid); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("amftpd is already running (PID %d)", pid)
				}
			}
		}
		_ = os.Remove(pidPath)
	}

	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "amftpd.log")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFileHandle.Close() }()

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Printf("amftpd started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'amftpdctl status' to check daemon status")
	return nil
}
