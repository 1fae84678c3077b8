package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"kiosk-service/internal/auth"
	auth_api "kiosk-service/internal/auth/api"
	buttons_api "kiosk-service/internal/buttons/api"
	buttons_db "kiosk-service/internal/buttons/db"
	buttons_service "kiosk-service/internal/buttons/service"
	clicks_api "kiosk-service/internal/clicks/api"
	clicks_db "kiosk-service/internal/clicks/db"
	clicks_service "kiosk-service/internal/clicks/service"
	"kiosk-service/internal/config"
	"kiosk-service/internal/database/migrations"
	"kiosk-service/internal/kafka"
	"kiosk-service/internal/logger"
	"kiosk-service/internal/stats"
	stats_api "kiosk-service/internal/stats/api"
)

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	if cfg.Database.PostgresDSN != "" {
		var sqldb *sql.DB
		var err error
		maxRetries := 5

		for i := 0; i < maxRetries; i++ {
			log.Info("DATABASE", fmt.Sprintf("Connecting to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
			sqldb, err = sql.Open("postgres", cfg.Database.PostgresDSN)
			if err == nil {
				err = sqldb.PingContext(ctx)
			}
			if err == nil {
				break
			}
			log.Error("DATABASE", fmt.Sprintf("PostgreSQL connection failed: %v", err))
			if i < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
		}
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
		}

		bunDB := bun.NewDB(sqldb, pgdialect.New())
		log.Info("DATABASE", "PostgreSQL connection successful")

		if err := migrations.NewRunner(bunDB, cfg.Database.MigrationsDir).Run(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		log.Info("DATABASE", "Migrations applied")
		return bunDB
	}

	sqldb, err := sql.Open("sqlite", cfg.Database.SQLitePath)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open sqlite database: %v", err))
	}
	// sqlite serializes writers; a single connection avoids table locks.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	log.Info("DATABASE", fmt.Sprintf("Using sqlite database at %s", cfg.Database.SQLitePath))
	return bunDB
}

func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		log.Info("REDIS", "REDIS_ADDR not set, PIN rate limiting falls back to in-memory")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
	return client
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting kiosk service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()
	if cfg.Auth.PIN == "" {
		log.Fatal("CONFIG", "KIOSK_PIN not set")
	}
	if cfg.Auth.SessionSecret == "" {
		log.Fatal("CONFIG", "SESSION_SECRET not set")
	}

	ctx := context.Background()
	loc := cfg.Location()

	bunDB := connectDatabase(ctx, cfg, log)
	defer bunDB.Close()

	clickDB := &clicks_db.DB{Bun: bunDB}
	buttonDB := &buttons_db.DB{Bun: bunDB}

	if cfg.Database.PostgresDSN == "" {
		if err := clickDB.CreateSchema(ctx); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create clicks schema: %v", err))
		}
		if err := buttonDB.CreateSchema(ctx); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create button_configs schema: %v", err))
		}
	}

	redisClient := connectRedis(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var limiter auth.AttemptLimiter
	if redisClient != nil {
		limiter = auth.NewRedisLimiter(redisClient, cfg.Auth.MaxPinFailures, cfg.Auth.FailureWindow)
	} else {
		limiter = auth.NewMemoryLimiter(cfg.Auth.MaxPinFailures, cfg.Auth.FailureWindow)
	}

	clickService := clicks_service.NewClickService(clickDB, cfg.Kiosk.ButtonCount, loc, log)
	if cfg.Kafka.Enabled {
		if err := kafka.CreateTopicIfNotExists(cfg.Kafka.Brokers, cfg.Kafka.ClickTopic); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		clickService.Kafka = producer
		clickService.Topic = cfg.Kafka.ClickTopic
		log.Info("KAFKA", fmt.Sprintf("Click stream enabled on topic %s", cfg.Kafka.ClickTopic))
	}

	buttonService := buttons_service.NewButtonService(buttonDB, cfg.Kiosk.ButtonCount, cfg.Kiosk.MaxLabelLen, cfg.Kiosk.MaxIconBytes)
	statsService := stats.NewService(clickDB, cfg.Kiosk.ButtonCount, cfg.Kiosk.StatsWindow, loc)
	gate := auth.NewGate(cfg.Auth.PIN, cfg.Auth.SessionSecret, cfg.Auth.SessionTTL, limiter, log)

	authHandler := auth_api.NewHandler(gate, cfg.Auth.SessionTTL, log)
	clickHandler := clicks_api.NewHandler(clickService, buttonService, log, cfg.Kiosk.TodayClickCap)
	buttonHandler := buttons_api.NewHandler(buttonService, log, cfg.Kiosk.MaxIconBytes)
	statsHandler := stats_api.NewHandler(statsService, buttonService, log, cfg.Kiosk.PublicURL)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	r.Route("/api", func(r chi.Router) {
		// --- Public routes ---
		authHandler.RegisterPublicRoutes(r)
		clickHandler.RegisterRoutes(r)
		buttonHandler.RegisterPublicRoutes(r)

		// --- Session-gated routes ---
		r.Group(func(r chi.Router) {
			r.Use(gate.Middleware())
			authHandler.RegisterProtectedRoutes(r)
			buttonHandler.RegisterProtectedRoutes(r)
			statsHandler.RegisterRoutes(r)
		})
	})
	log.Info("ROUTER", "API routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Kiosk service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Kiosk service shutdown complete")
	}
}
