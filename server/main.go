package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/catalog"
	"github.com/meikuraledutech/pipeline/postgres"
	"github.com/meikuraledutech/pipeline/sqlite"
)

func main() {
	cfg, err := configFromEnv(os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, log *slog.Logger) error {
	defs, err := loadCatalog(cfg.ToolCatalog)
	if err != nil {
		return err
	}

	var (
		store pipeline.Store
		tools pipeline.ToolRegistry
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			return err
		}
		// The catalog file seeds the tools table; tools added there by
		// other means stay available.
		for i := range defs {
			if err := pg.UpsertTool(ctx, &defs[i]); err != nil {
				return err
			}
		}
		store, tools = pg, pg
		log.Info("using postgres store", "tools", len(defs))
	} else {
		lite, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer lite.Close()

		reg, err := catalog.New(defs...)
		if err != nil {
			return err
		}
		store, tools = lite, reg
		log.Info("using sqlite store", "path", cfg.SQLitePath, "tools", len(defs))
	}

	srv, err := newServer(ctx, tools, store, pipeline.NewEditor(tools), log)
	if err != nil {
		return err
	}
	app := newApp(srv)

	log.Info("listening", "addr", cfg.ListenAddr)
	return app.Listen(cfg.ListenAddr)
}

// loadCatalog reads the tool catalog file, or returns the builtin tools
// when none is configured.
func loadCatalog(path string) ([]pipeline.ToolDefinition, error) {
	if path == "" {
		return catalog.Builtins(), nil
	}
	return catalog.LoadFile(path)
}
