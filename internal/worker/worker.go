// Package worker consumes generation commands from RabbitMQ and runs them
// against the populator on a fixed-size goroutine pool.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/populate"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Operations are the generation operations a command can trigger
type Operations interface {
	PopulateWorld(ctx context.Context, worldID string) (populate.Result, error)
	RefreshStale(ctx context.Context, worldID string) (populate.Result, error)
	CleanupExpired(ctx context.Context, worldID string) (int64, error)
}

// Consumer delivers raw command messages
type Consumer interface {
	SetPrefetch(count int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger         *slog.Logger
	Consumer       Consumer
	Operations     Operations
	WorkerID       string
	Concurrency    int
	PrefetchCount  int
	CommandTimeout time.Duration
}

// commandMessage pairs a decoded command with its delivery for ack/nack
type commandMessage struct {
	command  domain.Command
	delivery amqp.Delivery
}

// Worker runs generation commands
type Worker struct {
	logger         *slog.Logger
	consumer       Consumer
	ops            Operations
	workerID       string
	concurrency    int
	prefetchCount  int
	commandTimeout time.Duration
	commandsChan   chan *commandMessage
	wg             sync.WaitGroup
	stopChan       chan struct{}
	stopOnce       sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	return &Worker{
		logger:         cfg.Logger,
		consumer:       cfg.Consumer,
		ops:            cfg.Operations,
		workerID:       cfg.WorkerID,
		concurrency:    concurrency,
		prefetchCount:  prefetch,
		commandTimeout: cfg.CommandTimeout,
		commandsChan:   make(chan *commandMessage),
		stopChan:       make(chan struct{}),
	}
}

// Start consumes commands until ctx is canceled or the delivery channel
// closes
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting command worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("command_timeout", w.commandTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop signals the pool and waits for in-flight commands
func (w *Worker) Stop() {
	w.logger.Info("Stopping command worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Command worker stopped")
}
