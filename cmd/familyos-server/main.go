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

	"family-os/internal/app"
	"family-os/internal/config"
	"family-os/internal/httpapi"
	"family-os/internal/logger"
	"family-os/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// 2. Initialize Services
	svc, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize services", "error", err)
	}
	defer svc.Close()

	// 3. Initialize Telegram Bot (optional)
	var webhook http.HandlerFunc
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg, svc.App, svc.Sessions, svc.Metrics, log)
		if err != nil {
			log.Fatal("failed to initialize telegram bot", "error", err)
		}
		webhook = bot.HandleWebhook
	}

	// 4. Start Server with Graceful Shutdown
	if cfg.LogMode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		App:         svc.App,
		Sessions:    svc.Sessions,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Webhook:     webhook,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port, "telegram", webhook != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if n, err := svc.Sessions.Cleanup(ctxShutdown); err == nil && n > 0 {
		log.Info("expired sessions removed", "count", n)
	}

	log.Info("server exiting")
}
