package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all cadence server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr      string `json:"listen_addr"`
	DBPath          string `json:"db_path"`
	LogLevel        string `json:"log_level"`
	Environment     string `json:"environment"`
	OwnerQuota      int    `json:"owner_quota"`
	WindowMinutes   int    `json:"window_minutes"`
	LocalScheduler  bool   `json:"local_scheduler"`
	VaultPassphrase string `json:"-"`
	VaultSalt       string `json:"-"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:    ":4200",
		DBPath:        filepath.Join(cadenceDir(), "cadence.db"),
		LogLevel:      "info",
		Environment:   "dev",
		OwnerQuota:    10,
		WindowMinutes: 5,
	}
}

func cadenceDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadence"
	}
	return filepath.Join(home, ".cadence")
}

func settingsPath() string {
	return filepath.Join(cadenceDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("CADENCE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CADENCE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CADENCE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CADENCE_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("CADENCE_OWNER_QUOTA"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OwnerQuota = n
		}
	}
	if v := os.Getenv("CADENCE_WINDOW_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WindowMinutes = n
		}
	}
	if v := os.Getenv("CADENCE_LOCAL_SCHEDULER"); v != "" {
		cfg.LocalScheduler = v == "true" || v == "1"
	}
	cfg.VaultPassphrase = os.Getenv("CADENCE_VAULT_PASSPHRASE")
	cfg.VaultSalt = os.Getenv("CADENCE_VAULT_SALT")

	return cfg
}
