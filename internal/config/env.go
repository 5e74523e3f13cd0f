package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are read in order; godotenv never overrides variables already present in the process.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads every existing env file. Missing files are not an error.
func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", "file", name, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "file", name)
	}
}
