package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/scheduler"
	"github.com/segyhp/loan-engine/pkg/logger"
)

const jobTimeout = 10 * time.Minute

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

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	store := repository.NewPostgresStore(db)

	loc := cfg.GetSchedulerLocation()
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	marker := scheduler.NewOverdueMarker(store.Installments(), loc, jobTimeout, zlog)
	if _, err := marker.Register(c, cfg.Scheduler.OverdueSpec); err != nil {
		zlog.Fatal("Failed to schedule overdue marking job",
			zap.String("spec", cfg.Scheduler.OverdueSpec), zap.Error(err))
	}

	c.Start()
	zlog.Info("Scheduler started",
		zap.String("overdue_spec", cfg.Scheduler.OverdueSpec),
		zap.String("timezone", cfg.Scheduler.Timezone))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	zlog.Info("Scheduler stopped")
}
