package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/kelsos/coinfolio/internal/logger"
)

// LoadEnvironment loads environment variables from .env files
// It tries to load from the current directory and from the directory of the executable
func LoadEnvironment() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found in current directory or error loading it: %v", err)
	} else {
		logger.Info("Loaded .env file from current directory")
	}

	execPath, err := os.Executable()
	if err != nil {
		logger.Debug("Could not determine executable path: %v", err)
		return
	}

	envPath := filepath.Join(filepath.Dir(execPath), ".env")
	if err := godotenv.Load(envPath); err != nil {
		logger.Debug("No .env file found at %s: %v", envPath, err)
		return
	}
	logger.Info("Loaded .env file from %s", envPath)
}
