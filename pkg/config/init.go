package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitConfig builds a default configuration rooted at storeDir and
// writes it to path, refusing to overwrite an existing file unless
// force is set. It is the model for `amftpd init`.
func InitConfig(path, storeDir string, force bool) (*Config, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := GetDefaultConfig()
	cfg.Database.StoreDir = storeDir
	cfg.Zipscript.SnapshotPath = filepath.Join(storeDir, "zipscript.json")
	cfg.PidFile = filepath.Join(storeDir, "amftpd.pid")
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("generated config failed validation: %w", err)
	}

	if err := SaveConfig(cfg, path); err != nil {
		return nil, err
	}

	return cfg, nil
}
