package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jo-hoe/healthdash/internal/backend/database"
	"github.com/jo-hoe/healthdash/internal/core"
)

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

// main brings the configured database schema up to date and exits.
func main() {
	configPath := getConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.SlogLevel()})))

	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString, config.Database.QueryTimeout)
	if err != nil {
		slog.Error("failed to migrate database", "type", config.Database.Type, "error", err)
		os.Exit(1)
	}
	if err := databaseService.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
		os.Exit(1)
	}
	slog.Info("database schema is up to date", "type", config.Database.Type)
}
