package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accountsvc/internal/api"
	"accountsvc/internal/app/service"
	"accountsvc/internal/common/security"
	"accountsvc/internal/domain/repository"
	"accountsvc/internal/platform/cache"
	"accountsvc/internal/platform/config"
	"accountsvc/internal/platform/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Load Configuration
	cfg := config.Load()
	logger.Info("configuration loaded")

	// 2. Initialize Database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// 3. Initialize Redis
	rdb, err := cache.Connect(cfg)
	if err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	logger.Info("redis connected")

	// 4. Initialize Token Issuer, Repositories, Services
	issuer := security.NewTokenIssuer(cfg.JWTKey, cfg.JWTExp)
	userRepo := repository.NewPgUserRepository(db)
	sessions := cache.NewSessionStore(rdb, cfg.SessionCacheTTL)
	accountService := service.NewAccountService(userRepo, issuer, sessions, logger)

	// 5. Initialize Router & HTTP Server
	router := api.NewRouter(accountService, issuer)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
