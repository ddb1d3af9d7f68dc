package main

import (
	"fmt"
	"log/slog"

	"vipclub/config"
	"vipclub/internal/database"
	"vipclub/internal/router"
	"vipclub/pkg/logger"
)

// operatorID is recorded as the actor on audit rows written by the CLI.
const operatorID = "vipctl"

type env struct {
	cfg *config.Config
	log *slog.Logger
	svc *router.Services
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log)
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	provider, err := router.NewProvider(cfg, log)
	if err != nil {
		return nil, err
	}
	svc := router.NewServices(cfg, db, router.Deps{Provider: provider, Logger: log})
	return &env{cfg: cfg, log: log, svc: svc}, nil
}
