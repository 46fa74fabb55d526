// Package config provides centralized configuration management.
// Server/operational settings come from the environment; gameplay
// balance numbers live in the YAML tuning file (tuning.go).
package config

import (
	"os"
	"strconv"
)

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port            int
	MaxClients      int // total concurrent WebSocket sessions
	MaxClientsPerIP int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:            3000,
		MaxClients:      500,
		MaxClientsPerIP: 5,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mc := getEnvInt("MAX_CLIENTS", 0); mc > 0 {
		cfg.MaxClients = mc
	}
	if mi := getEnvInt("MAX_CLIENTS_PER_IP", 0); mi > 0 {
		cfg.MaxClientsPerIP = mi
	}

	return cfg
}

// PersistenceConfig holds storage paths.
type PersistenceConfig struct {
	DBPath     string // SQLite database
	ArchiveDir string // zstd world archives
	AuditPath  string // append-only JSONL audit log, empty disables
}

// DefaultPersistence returns the default persistence configuration.
func DefaultPersistence() PersistenceConfig {
	return PersistenceConfig{
		DBPath:     "data/world.db",
		ArchiveDir: "data/archives",
		AuditPath:  "data/audit.jsonl",
	}
}

// PersistenceFromEnv returns persistence configuration with environment
// overrides.
func PersistenceFromEnv() PersistenceConfig {
	cfg := DefaultPersistence()

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ARCHIVE_DIR"); v != "" {
		cfg.ArchiveDir = v
	}
	if v, ok := os.LookupEnv("AUDIT_PATH"); ok {
		cfg.AuditPath = v
	}

	return cfg
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server      ServerConfig
	Persistence PersistenceConfig
	TuningPath  string // YAML tuning file, empty = built-in defaults
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:      ServerFromEnv(),
		Persistence: PersistenceFromEnv(),
		TuningPath:  os.Getenv("TUNING_PATH"),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
