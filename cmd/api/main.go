package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/bookhaven/bookstore-api/internal/config"
	"github.com/bookhaven/bookstore-api/internal/handler"
	"github.com/bookhaven/bookstore-api/internal/middleware"
	"github.com/bookhaven/bookstore-api/internal/repository"
	"github.com/bookhaven/bookstore-api/internal/service"
	"github.com/bookhaven/bookstore-api/internal/worker"
	"github.com/bookhaven/bookstore-api/migrations"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	if err := runMigrations(cfg); err != nil {
		log.Error("run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database schema up to date")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	genreRepo := repository.NewGenreRepository(dbPool)
	authorRepo := repository.NewAuthorRepository(dbPool)
	bookRepo := repository.NewBookRepository(dbPool)
	customerRepo := repository.NewCustomerRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(customerRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(bookRepo, authorRepo, genreRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, bookRepo)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, customerRepo, amqpCh)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	fulfillmentWorker := worker.NewFulfillmentWorker(amqpCh, orderRepo, catalogSvc, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		profile := v1.Group("/profile", middleware.AuthMiddleware(cfg.JWT.Secret))
		profile.GET("", authH.Profile)
		profile.PUT("", authH.UpdateProfile)
		profile.DELETE("", authH.Deactivate)

		v1.GET("/books", catalogH.List)
		v1.GET("/books/featured", catalogH.Featured)
		v1.GET("/books/:id", catalogH.GetByID)
		v1.GET("/genres", catalogH.Genres)
		v1.GET("/search", catalogH.Search)

		admin := v1.Group("", middleware.AuthMiddleware(cfg.JWT.Secret), middleware.AdminOnly())
		admin.POST("/books", catalogH.Create)
		admin.PUT("/books/:id", catalogH.Update)
		admin.DELETE("/books/:id", catalogH.Delete)
		admin.POST("/genres", catalogH.CreateGenre)
		admin.POST("/authors", catalogH.CreateAuthor)

		cart := v1.Group("/cart", middleware.AuthMiddleware(cfg.JWT.Secret))
		cart.GET("", cartH.GetCart)
		cart.POST("/items", cartH.AddItem)
		cart.PUT("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.DeleteItem)

		orders := v1.Group("/orders", middleware.AuthMiddleware(cfg.JWT.Secret))
		orders.POST("", orderH.CreateOrder)
		orders.POST("/checkout", orderH.Checkout)
		orders.GET("", orderH.ListOrders)
		orders.GET("/:id", orderH.GetOrder)
		orders.GET("/:id/total", orderH.CheckTotal)
	}

	if err := fulfillmentWorker.Start(ctx); err != nil {
		log.Error("start fulfillment worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	fulfillmentWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}

func runMigrations(cfg *config.Config) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.DB.MigrateDSN())
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
