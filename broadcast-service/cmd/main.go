package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	redisClient "github.com/jp93arg/NFTMarketplace/broadcast-service/internal/redis"
	wsHandler "github.com/jp93arg/NFTMarketplace/broadcast-service/internal/websocket"
	"github.com/jp93arg/NFTMarketplace/shared/config"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "broadcast-service").Logger()
	log.Info().Msg("starting broadcast service")

	// Load configuration
	cfg := loadConfig()

	// Initialize Redis subscriber
	log.Info().Str("addr", cfg.RedisAddr).Msg("connecting to Redis")
	subscriber, err := redisClient.NewSubscriber(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer subscriber.Close()

	// Subscribe to all market events using pattern matching
	ctx := context.Background()
	if err := subscriber.SubscribeToMarketEvents(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to Redis channels")
	}
	log.Info().Msg("subscribed to market events")

	// Initialize WebSocket manager
	wsManager := wsHandler.NewManager(log)
	go wsManager.Run()

	// Channel for Redis messages
	messageChan := make(chan *redisClient.Message, 256)

	// Start Redis subscriber in a goroutine
	go func() {
		log.Info().Msg("listening for Redis Pub/Sub messages")
		if err := subscriber.Listen(ctx, messageChan); err != nil {
			log.Error().Err(err).Msg("redis listener error")
		}
	}()

	// Message forwarder (Redis Pub/Sub -> WebSocket)
	go func() {
		for msg := range messageChan {
			wsManager.Broadcast(msg.Topic, []byte(msg.Payload))
		}
	}()

	// HTTP server for WebSocket connections
	handler := wsHandler.NewHandler(wsManager, log)
	router := handler.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddr).Msg("broadcast service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped gracefully")
}

// Config holds application configuration
type Config struct {
	ServerAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8081"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
	}
}
