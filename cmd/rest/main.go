package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mnp-assistant-be/internal/bootstrap"
	"mnp-assistant-be/internal/config"
	"mnp-assistant-be/internal/server"
	"mnp-assistant-be/internal/tracer"
	"mnp-assistant-be/pkg/database"

	"github.com/robfig/cron/v3"
)

func main() {
	// 0. Load configuration and tracing
	cfg := config.Load()
	if cfg.App.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	shutdownTracer := tracer.InitTracer(cfg)
	defer shutdownTracer(context.Background())

	// 1. Initialize database
	poolCfg := database.DefaultPoolConfig()
	poolCfg.Verbose = cfg.Database.Verbose
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, poolCfg)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 2. Bootstrap dependencies
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start background services
	if err := container.WebSocketHub.Start(ctx); err != nil {
		log.Printf("Background: websocket hub relay unavailable: %v", err)
	}
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Background: embedding consumer failed to start: %v", err)
	}
	if container.NotificationService != nil {
		if err := container.NotificationService.Start(ctx); err != nil {
			log.Printf("Background: notification relay unavailable: %v", err)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.App.BackfillSchedule, func() {
		if _, err := container.KnowledgeService.Backfill(ctx); err != nil {
			log.Printf("Background: embedding backfill failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid EMBEDDING_BACKFILL_SCHEDULE %q: %v", cfg.App.BackfillSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 4. Serve until interrupted
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
