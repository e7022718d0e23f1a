package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/amftpd/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced with defaults; explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyDatabaseDefaults(&cfg.Database)
	applyZipscriptDefaults(&cfg.Zipscript)
	applyAdminDefaults(&cfg.Admin)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.PidFile == "" {
		cfg.PidFile = filepath.Join(cfg.Database.StoreDir, "amftpd.pid")
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.WalMaxBytes == 0 {
		cfg.WalMaxBytes = 5 * bytesize.MiB
	}
	if cfg.BackupBufferSize == 0 {
		cfg.BackupBufferSize = 1 * bytesize.MiB
	}
}

func applyZipscriptDefaults(cfg *ZipscriptConfig) {
	if cfg.FlushThreshold == 0 {
		cfg.FlushThreshold = 32
	}
}

func applyAdminDefaults(cfg *AdminConfig) {
	if cfg.Username == "" {
		cfg.Username = "admin"
	}
}

// GetDefaultConfig returns a Config with all default values applied,
// useful for generating sample configuration and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			StoreDir: "/var/lib/amftpd/store",
		},
		Zipscript: ZipscriptConfig{
			SnapshotPath: "/var/lib/amftpd/zipscript.json",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
