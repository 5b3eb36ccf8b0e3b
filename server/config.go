package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// config is read from the environment. DATABASE_URL selects Postgres;
// without it the pipeline is kept in a SQLite file.
type config struct {
	DatabaseURL string
	SQLitePath  string `validate:"required_without=DatabaseURL"`
	ToolCatalog string `validate:"omitempty,file"`
	ListenAddr  string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFormat   string `validate:"oneof=text json"`
}

func configFromEnv(getenv func(string) string) (config, error) {
	cfg := config{
		DatabaseURL: getenv("DATABASE_URL"),
		SQLitePath:  getenv("SQLITE_PATH"),
		ToolCatalog: getenv("TOOL_CATALOG"),
		ListenAddr:  getenv("LISTEN_ADDR"),
		LogLevel:    getenv("LOG_LEVEL"),
		LogFormat:   getenv("LOG_FORMAT"),
	}
	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		cfg.SQLitePath = "data/pipeline.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":3000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
