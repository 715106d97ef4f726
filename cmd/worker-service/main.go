package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/flight-jobs/internal/bootstrap"
	"github.com/cuongbtq/flight-jobs/internal/config"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/populate"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/storage"
	"github.com/cuongbtq/flight-jobs/internal/runstats"
	"github.com/cuongbtq/flight-jobs/internal/scheduler"
	"github.com/cuongbtq/flight-jobs/internal/worker"
	"github.com/joho/godotenv"
)

const serviceName = "jobgen-worker-service"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.Logger(&cfg.Logging, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("worker_id", cfg.Worker.ID),
	)

	dbClient, err := bootstrap.Database(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	store := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)
	if cfg.Database.Migrate {
		if err := store.Migrate(context.Background()); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		appLogger.Info("Database schema migrated")
	}

	rabbitClient, err := bootstrap.RabbitMQ(&cfg.RabbitMQ, false, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	// Every run lands in the database run log; redis keeps the rolling aggregate
	recorders := runstats.Multi{store}
	if cfg.Redis.Enabled {
		rdb, err := bootstrap.Redis(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer rdb.Close()

		recorders = append(recorders, runstats.NewRedisRecorder(rdb, cfg.Redis.KeyPrefix))
		appLogger.Info("Redis run statistics enabled", slog.String("addr", cfg.Redis.Addr))
	}

	populator := populate.New(bootstrap.PopulateConfig(&cfg.Generation), store, appLogger.Logger,
		populate.WithNotifier(worker.NewEventNotifier(rabbitClient)),
		populate.WithRecorder(recorders),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)

	// closed once the scheduler and its in-flight tick have returned
	schedDone := make(chan struct{})

	if !cfg.Generation.DisableScheduler {
		sched := scheduler.New(populator, scheduler.Config{
			Interval:    cfg.Generation.Interval,
			Warmup:      cfg.Generation.Warmup,
			Parallelism: cfg.Generation.Parallelism,
		}, appLogger.Logger)

		go func() {
			defer close(schedDone)
			if err := sched.Start(ctx); err != nil {
				errChan <- fmt.Errorf("scheduler failed: %w", err)
			}
		}()
	} else {
		close(schedDone)
		appLogger.Info("Scheduler disabled, serving queued commands only")
	}

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:         appLogger.Logger,
		Consumer:       rabbitClient,
		Operations:     populator,
		WorkerID:       cfg.Worker.ID,
		Concurrency:    cfg.Worker.Concurrency,
		PrefetchCount:  cfg.RabbitMQ.Consumer.PrefetchCount,
		CommandTimeout: cfg.Worker.CommandTimeout,
	})

	go func() {
		err := workerInstance.Start(ctx)
		if err == nil && ctx.Err() == nil {
			err = errors.New("command delivery channel closed")
		}
		if err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case runErr = <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", runErr),
		)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		<-schedDone
		close(done)
	}()

	// the database and broker are closed by the deferred calls only after
	// in-flight batches have committed or rolled back
	select {
	case <-done:
		appLogger.Info("Worker and scheduler stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return runErr
}
