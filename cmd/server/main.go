package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wilbur-realtime/internal/api/routes"
	"wilbur-realtime/internal/auth"
	"wilbur-realtime/internal/config"
	"wilbur-realtime/internal/database"
	"wilbur-realtime/internal/ingest"
	"wilbur-realtime/internal/realtime"
	"wilbur-realtime/internal/repositories/postgres"
	"wilbur-realtime/internal/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting wilbur realtime server")

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Redis is advisory (online status); the service runs without it.
	var status realtime.StatusTracker
	if cfg.Redis.Addr != "" {
		redisClient, err := database.NewRedisConnection(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		status = services.NewPresenceService(redisClient)
	}

	membershipRepo := postgres.NewMembershipRepository(db)
	accessService := services.NewChannelAccessService(membershipRepo)
	verifier := auth.NewTokenVerifier(cfg.JWT.Secret)

	registry := realtime.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := realtime.NewSweeper(registry, cfg.Realtime.SweepInterval)
	go sweeper.Run(ctx)

	var consumer *ingest.KafkaConsumer
	if cfg.Kafka.Enabled {
		consumer = ingest.NewKafkaConsumer(cfg.Kafka, registry)
		go consumer.Run(ctx)
	}

	router := routes.NewRouter(registry, accessService, verifier, status, cfg)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	cancel()
	if consumer != nil {
		consumer.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
