package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/audit"
	"github.com/segyhp/loan-engine/internal/cache"
	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/handler"
	"github.com/segyhp/loan-engine/internal/metrics"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/service"
	"github.com/segyhp/loan-engine/pkg/logger"
	"github.com/segyhp/loan-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.Database.AutoMigrate {
		if err := repository.RunMigrations(cfg.Database.MigrationsPath, cfg.Database.URL); err != nil {
			zlog.Fatal("Failed to run migrations", zap.Error(err))
		}
		zlog.Info("Migrations applied", zap.String("source", cfg.Database.MigrationsPath))
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	registry := metrics.NewRegistry()

	// Audit sinks
	sinks := audit.Multi{audit.NewLogSink(zlog), audit.NewMetricsSink(registry)}
	var kafkaSink *audit.KafkaSink
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		writer := audit.NewKafkaWriter(brokers, cfg.Kafka.AuditTopic)
		kafkaSink = audit.NewKafkaSink(writer, cfg.GetKafkaWriteTimeout(), zlog)
		sinks = append(sinks, kafkaSink)
		zlog.Info("Publishing audit events to Kafka",
			zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.AuditTopic))
	}

	// Loan cache
	var loanCache service.LoanCache
	if addr := cfg.RedisAddress(); addr != "" {
		redisClient := initRedis(cfg)
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			zlog.Warn("Redis unreachable, loan reads go straight to the database",
				zap.String("addr", addr), zap.Error(err))
		}
		loanCache = cache.NewRedisLoanCache(redisClient, cfg.GetCacheTTL())
	}

	// Initialize repositories and services
	store := repository.NewPostgresStore(db)
	eligibility := repository.NewEligibilityRepository(db)

	loanService := service.NewLoanService(store, eligibility, sinks, loanCache, cfg, zlog)
	repaymentService := service.NewRepaymentService(store, sinks, loanCache, zlog)

	router := setupRoutes(
		handler.NewLoanHandler(loanService, zlog),
		handler.NewRepaymentHandler(repaymentService, zlog),
		registry, zlog)

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	// Start server in a goroutine
	go func() {
		zlog.Info("Server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}

	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			zlog.Warn("Failed to close audit writer", zap.Error(err))
		}
	}

	zlog.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loans *handler.LoanHandler, repayments *handler.RepaymentHandler, registry *prometheus.Registry, zlog *zap.Logger) *mux.Router {
	router := mux.NewRouter()

	httpMetrics := metrics.NewHTTP(registry)
	router.Use(response.CORSMiddleware, response.LoggingMiddleware(zlog), httpMetrics.Middleware)

	router.Handle("/metrics", metrics.Handler(registry)).Methods(http.MethodGet)
	handler.RegisterRoutes(router, loans, repayments)

	return router
}
