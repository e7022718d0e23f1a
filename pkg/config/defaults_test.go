package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/amftpd/internal/bytesize"
)

func TestApplyDefaultsLogging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestApplyDefaultsNormalizesLogLevelCase(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestApplyDefaultsDatabase(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.Equal(t, 5*bytesize.MiB, cfg.Database.WalMaxBytes)
	assert.Equal(t, 1*bytesize.MiB, cfg.Database.BackupBufferSize)
}

func TestApplyDefaultsShutdownTimeoutAndPidFile(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{StoreDir: "/store"}}
	ApplyDefaults(cfg)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/store/amftpd.pid", cfg.PidFile)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "ERROR", Format: "json", Output: "/var/log/amftpd.log"},
		ShutdownTimeout: 3 * time.Second,
		PidFile:         "/run/amftpd.pid",
	}
	ApplyDefaults(cfg)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/var/log/amftpd.log", cfg.Logging.Output)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/run/amftpd.pid", cfg.PidFile)
}

func TestGetDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	a := assert.New(t)
	a.NotEmpty(cfg.Database.StoreDir)
	a.NotEmpty(cfg.Zipscript.SnapshotPath)
	a.NoError(Validate(cfg))
}
