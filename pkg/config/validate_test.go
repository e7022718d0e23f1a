package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := GetDefaultConfig()
	return cfg
}

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "LOUD"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsMissingStoreDir(t *testing.T) {
	cfg := validConfig()
	cfg.Database.StoreDir = ""
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsZeroShutdownTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.ShutdownTimeout = 0
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsZeroFlushThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Zipscript.FlushThreshold = 0
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsMissingSnapshotPath(t *testing.T) {
	cfg := validConfig()
	cfg.Zipscript.SnapshotPath = ""
	assert.Error(t, Validate(cfg))
}
