package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nightpass/nightpass/internal/config"
	"github.com/nightpass/nightpass/internal/devapi"
	"github.com/nightpass/nightpass/internal/logging"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logCfg := logging.ConfigFromEnv()
	log, err := logging.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if !logCfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}

	h := devapi.New(devapi.Options{
		OTP:      cfg.DevAPIOTP,
		Secret:   cfg.DevAPISecret,
		TokenTTL: cfg.DevAPITokenTTL,
		Logger:   log,
	})
	adminPhone := os.Getenv("NIGHTPASS_DEVAPI_ADMIN_PHONE")
	if err := h.Store.Seed(adminPhone); err != nil {
		log.Fatal("failed to seed demo data", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.DevAPIAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("development API listening",
			zap.String("addr", cfg.DevAPIAddr),
			zap.String("otp", cfg.DevAPIOTP),
			zap.String("admin_phone", adminPhone),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutdown signal received, draining requests")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("stopped")
}
