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

	"auctiond/internal/config"
	"auctiond/internal/domain"
	"auctiond/internal/infrastructure/file"
	"auctiond/internal/infrastructure/rabbitmq"
	auctionredis "auctiond/internal/infrastructure/redis"
	"auctiond/internal/services"
	"auctiond/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New("bid-service")
	log.Info("Starting bid admission service")

	cfg, err := config.Load(8082)
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	registry, err := buildKeyRegistry(cfg, log)
	if err != nil {
		log.Error("Failed to initialize key registry", "error", err)
		os.Exit(1)
	}

	broker, err := rabbitmq.NewClient(cfg.AMQP.URL, log)
	if err != nil {
		log.Error("Failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	publisher := rabbitmq.NewPublisher(broker)
	engine := services.NewAdmissionEngine(registry, publisher, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One consumption loop per subscribed queue. Losing any of them means
	// the broker connection is gone, which is fatal to this process.
	fatal := make(chan error, 3)
	consume := func(queue string, handler domain.MessageHandler) {
		go func() {
			if err := broker.Consume(ctx, queue, handler); err != nil && ctx.Err() == nil {
				fatal <- fmt.Errorf("consume %s: %w", queue, err)
			}
		}()
	}
	consume(rabbitmq.QueueBidSubmitted, engine.HandleBidMessage)
	consume(rabbitmq.QueueAuctionOpened, engine.HandleOpenedMessage)
	consume(rabbitmq.QueueAuctionClosed, engine.HandleClosedMessage)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "bid-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-fatal:
		log.Error("Consumption loop failed", "error", err)
		os.Exit(1)
	case <-quit:
	}

	log.Info("Shutting down bid admission service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Bid admission service stopped")
}

func buildKeyRegistry(cfg *config.Config, log logger.Logger) (domain.KeyRegistry, error) {
	switch cfg.Keys.Registry {
	case "file":
		log.Info("Using file key registry", "dir", cfg.Keys.Dir)
		return file.NewKeyRegistry(cfg.Keys.Dir), nil

	case "redis":
		rdb := redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("Using redis key registry", "address", cfg.Redis.Address)
		return auctionredis.NewKeyRegistry(rdb), nil

	default:
		return nil, fmt.Errorf("unknown key registry %q", cfg.Keys.Registry)
	}
}
