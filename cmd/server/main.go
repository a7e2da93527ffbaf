package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohits-web03/sharegate/internal/api"
	"github.com/rohits-web03/sharegate/internal/api/handlers"
	"github.com/rohits-web03/sharegate/internal/api/middleware"
	"github.com/rohits-web03/sharegate/internal/api/services"
	"github.com/rohits-web03/sharegate/internal/config"
	"github.com/rohits-web03/sharegate/internal/jobs"
	"github.com/rohits-web03/sharegate/internal/logging"
	"github.com/rohits-web03/sharegate/internal/repositories"
	"github.com/rohits-web03/sharegate/internal/share"
	"github.com/rohits-web03/sharegate/internal/utils"
)

// @title ShareGate API
// @version 1.0
// @description Secure file and link sharing with passcodes, expiry, download caps and access analytics.
// @BasePath /
func main() {
	cfg := config.Envs
	logger := logging.New(cfg.LogLevel, cfg.IsProduction())
	slog.SetDefault(logger)

	db, err := repositories.ConnectDatabase(cfg.DB_URL)
	if err != nil {
		log.Fatalf("Database: %v", err)
	}

	blobs, err := repositories.NewR2Store(cfg.R2)
	if err != nil {
		log.Fatalf("Storage: %v", err)
	}

	svc := share.NewService(
		repositories.NewTransferStore(db),
		blobs,
		share.NewBcryptHasher(cfg.PasscodeCost),
		share.RealClock{},
		logger,
		share.Options{
			GrantSecret: cfg.JWTSecret,
			GrantTTL:    cfg.GrantTTL,
			PresignTTL:  cfg.PresignTTL,
			AppURL:      cfg.AppURL,
			AppName:     cfg.AppName,
		},
	)

	proxies, err := utils.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	limiter := middleware.NewRateLimiter(cfg.ViewRatePerSec, cfg.ViewRateBurst, proxies)

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddExpirySweep(cfg.ExpirySweepSpec, svc); err != nil {
		log.Fatalf("Scheduler: %v", err)
	}
	scheduler.AddCleanup("view-rate-limiter", time.Minute, limiter)
	scheduler.Start()

	h := handlers.New(svc, repositories.NewUserStore(db), services.NewGoogleOAuth(cfg.Google), cfg, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           api.SetupRouter(h, cfg, limiter, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not listen on port %s: %v", cfg.Port, err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	scheduler.Stop(shutdownCtx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
