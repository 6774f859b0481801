// Package config loads application configuration from environment variables
// and an optional .env file.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	DBPath      string // sqlite database file
	RulesPath   string // rule-set JSON document
	UploadsPath string // where uploaded exports are retained
	Port        string
	Host        string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	dbPath := getEnvOrDefault("BUDGET_DB_PATH", "./data/budget_sniffer.db")

	return &Config{
		DBPath:      dbPath,
		RulesPath:   getEnvOrDefault("BUDGET_RULES_PATH", "./rules.json"),
		UploadsPath: getEnvOrDefault("BUDGET_UPLOADS_PATH", filepath.Join(filepath.Dir(dbPath), "uploads")),
		Port:        getEnvOrDefault("PORT", "5056"),
		Host:        getEnvOrDefault("HOST", ""),
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
