package main

import (
	"context"
	"database/sql"
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
	"auctiond/internal/infrastructure/mysql"
	"auctiond/internal/infrastructure/rabbitmq"
	"auctiond/internal/services"
	"auctiond/pkg/logger"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New("lifecycle-service")
	log.Info("Starting lifecycle service")

	cfg, err := config.Load(8081)
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	catalog, err := loadCatalog(ctx, cfg, log)
	cancel()
	if err != nil {
		// No auctions to manage; nothing useful this process can do.
		log.Error("Failed to load auction catalog", "error", err)
		os.Exit(1)
	}
	log.Info("Catalog loaded", "auctions", len(catalog))

	broker, err := rabbitmq.NewClient(cfg.AMQP.URL, log)
	if err != nil {
		log.Error("Failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	publisher := rabbitmq.NewPublisher(broker)
	manager := services.NewLifecycleManager(catalog, publisher, cfg.AMQP.PollInterval, log)

	if err := manager.Start(context.Background()); err != nil {
		log.Error("Failed to start lifecycle manager", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "lifecycle-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	e.GET("/auctions", func(c echo.Context) error {
		type auctionView struct {
			ID           string    `json:"auction_id"`
			Description  string    `json:"description"`
			MinimumPrice float64   `json:"minimum_price"`
			StartTime    time.Time `json:"start_time"`
			EndTime      time.Time `json:"end_time"`
			Status       string    `json:"status"`
		}
		var out []auctionView
		for _, a := range manager.Auctions() {
			out = append(out, auctionView{
				ID:           a.ID,
				Description:  a.Description,
				MinimumPrice: a.MinimumPrice,
				StartTime:    a.StartTime,
				EndTime:      a.EndTime,
				Status:       a.Status.String(),
			})
		}
		return c.JSON(http.StatusOK, out)
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
	<-quit

	log.Info("Shutting down lifecycle service...")
	manager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Lifecycle service stopped")
}

func loadCatalog(ctx context.Context, cfg *config.Config, log logger.Logger) ([]*domain.Auction, error) {
	switch cfg.Catalog.Source {
	case "file":
		return file.NewCatalogSource(cfg.Catalog.Path).LoadCatalog(ctx)

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		log.Info("Connected to MySQL catalog")
		return mysql.NewCatalogRepository(db).LoadCatalog(ctx)

	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}
