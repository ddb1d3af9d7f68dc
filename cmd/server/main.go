package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vipclub/config"
	"vipclub/internal/database"
	"vipclub/internal/router"
	"vipclub/internal/service"
	"vipclub/pkg/cloudinary"
	"vipclub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Log)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Error("database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}

	provider, err := router.NewProvider(cfg, log)
	if err != nil {
		log.Error("payment provider", "error", err)
		os.Exit(1)
	}
	limiter, err := router.NewLimiter(cfg)
	if err != nil {
		log.Error("rate limiter", "error", err)
		os.Exit(1)
	}
	deps := router.Deps{
		Provider: provider,
		FCM:      service.NewFCMService(cfg.Firebase.ServiceAccountPath, log),
		Logger:   log,
	}
	if cfg.Cloudinary.Enabled() {
		uploader, err := cloudinary.NewQRUploader(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.QRFolder)
		if err != nil {
			log.Error("cloudinary", "error", err)
			os.Exit(1)
		}
		deps.QRUploader = uploader
	}

	svc := router.NewServices(cfg, db, deps)
	engine := router.Setup(cfg, db, svc, limiter, log)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("server listening", "port", cfg.Server.Port, "gateway", cfg.Gateway.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	log.Info("server stopped")
}
