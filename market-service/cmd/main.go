package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/jp93arg/NFTMarketplace/market-service/internal/funds"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/handlers"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/ledger"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/market"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/redisstore"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/service"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/token"
	"github.com/jp93arg/NFTMarketplace/shared/config"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "market-service").Logger()
	log.Info().Msg("starting market service")

	// Load configuration from environment variables
	cfg := loadConfig()

	// Initialize Redis read-model
	log.Info().Str("addr", cfg.RedisAddr).Msg("connecting to Redis")
	cache, err := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer cache.Close()

	// Initialize NATS connection
	log.Info().Str("url", cfg.NatsURL).Msg("connecting to NATS")
	natsConn, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer natsConn.Close()

	// Assemble the ledger core
	registry := token.NewInMemoryRegistry(cfg.TokenContract, cfg.Operator)
	engine := market.New(
		ledger.NewStore(),
		funds.NewEscrow(),
		registry,
		market.SystemClock{},
		cfg.Operator,
		cfg.ListingFee,
	)

	marketService, err := service.New(engine, registry, cache, natsConn, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create market service")
	}

	// Initialize HTTP handlers
	handler := handlers.NewHandler(marketService, log)
	router := handler.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.ServerAddr).Msg("market service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
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
	NatsURL       string
	Operator      string
	TokenContract string
	ListingFee    uint64
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8080"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
		NatsURL:       config.GetEnv("NATS_URL", "nats://localhost:4222"),
		Operator:      config.GetEnv("MARKET_OPERATOR", "marketplace"),
		TokenContract: config.GetEnv("TOKEN_CONTRACT", "market-tokens"),
		ListingFee:    config.GetEnvUint64("LISTING_FEE", 25000),
	}
}
