// Package main runs the background email worker: due-schedule ticks plus
// queue-driven dispatch kicks and resends.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inkwell-funnel/backend/config"
	"github.com/inkwell-funnel/backend/internal/emaillogs"
	"github.com/inkwell-funnel/backend/internal/mailer"
	"github.com/inkwell-funnel/backend/internal/schedule"
	"github.com/inkwell-funnel/backend/internal/worker"
	"github.com/inkwell-funnel/backend/pkg/database"
	"github.com/inkwell-funnel/backend/pkg/queue"
	"github.com/inkwell-funnel/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	scheduleRepo := schedule.NewRepository(pool)
	logRepo := emaillogs.NewRepository(pool)
	sender := mailer.FromConfig(cfg.Email, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	processor := worker.NewEmailProcessor(scheduleRepo, logRepo, sender, jobQueue, cfg.Email, cfg.Worker, cfg.Server.BaseURL, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started", zap.Duration("tick", cfg.Worker.TickInterval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
