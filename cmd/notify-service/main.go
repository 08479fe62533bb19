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
	"auctiond/internal/infrastructure/rabbitmq"
	"auctiond/internal/infrastructure/websocket"
	"auctiond/internal/services"
	"auctiond/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New("notify-service")
	log.Info("Starting notification service")

	cfg, err := config.Load(8083)
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	broker, err := rabbitmq.NewClient(cfg.AMQP.URL, log)
	if err != nil {
		log.Error("Failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	connManager := websocket.NewConnectionManager(log)
	wsHandler := websocket.NewHandler(connManager, log)

	publisher := rabbitmq.NewPublisher(broker)
	router := services.NewNotificationRouter(publisher, connManager, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fatal := make(chan error, 2)
	consume := func(queue string, handler domain.MessageHandler) {
		go func() {
			if err := broker.Consume(ctx, queue, handler); err != nil && ctx.Err() == nil {
				fatal <- fmt.Errorf("consume %s: %w", queue, err)
			}
		}()
	}
	consume(rabbitmq.QueueBidValidated, router.HandleBidMessage)
	consume(rabbitmq.QueueWinner, router.HandleWinnerMessage)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "notify-service",
			"observers": connManager.ObserverCount(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	e.GET("/ws/:auction_id", wsHandler.Observe)

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

	log.Info("Shutting down notification service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Notification service stopped")
}
