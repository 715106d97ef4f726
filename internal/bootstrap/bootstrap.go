// Package bootstrap turns loaded configuration into connected clients for
// the service binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/config"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/populate"
	"github.com/cuongbtq/flight-jobs/shared/database"
	"github.com/cuongbtq/flight-jobs/shared/logger"
	"github.com/cuongbtq/flight-jobs/shared/rabbitmq"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// Logger builds the service logger; every record carries the service name
func Logger(cfg *config.LoggingConfig, service string) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      service,
	})
}

// Database connects to postgres or sqlite
func Database(cfg *config.DatabaseConfig, log *slog.Logger) (*database.Client, error) {
	return database.NewClient(DatabaseConfig(cfg), log)
}

// DatabaseConfig maps the yaml section onto the client config
func DatabaseConfig(cfg *config.DatabaseConfig) *database.Config {
	return &database.Config{
		Driver:          cfg.Driver,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// RabbitMQ connects to the generation exchange. With publishOnly the command
// queue is neither declared nor bound.
func RabbitMQ(cfg *config.RabbitMQConfig, publishOnly bool, log *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(RabbitMQConfig(cfg, publishOnly), log)
}

// RabbitMQConfig maps the yaml section onto the client config
func RabbitMQConfig(cfg *config.RabbitMQConfig, publishOnly bool) *rabbitmq.Config {
	rc := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}
	if publishOnly {
		rc.QueueName = ""
	}
	return rc
}

// Redis connects to the run statistics store and pings it
func Redis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// PopulateConfig maps the generation section onto populator settings
func PopulateConfig(cfg *config.GenerationConfig) populate.Config {
	classes := make([]domain.AirportClass, len(cfg.AirportClasses))
	for i, class := range cfg.AirportClasses {
		classes[i] = domain.AirportClass(class)
	}

	return populate.Config{
		Targets: populate.Targets{
			Large:  valueOr(cfg.Targets.Large, populate.DefaultTargetLarge),
			Medium: valueOr(cfg.Targets.Medium, populate.DefaultTargetMedium),
			Small:  valueOr(cfg.Targets.Small, populate.DefaultTargetSmall),
			Other:  valueOr(cfg.Targets.Other, populate.DefaultTargetSmall/2),
		},
		MinJobsThreshold:   cfg.MinJobsThreshold,
		CargoRatio:         valueOr(cfg.CargoRatio, populate.DefaultCargoRatio),
		BatchSize:          cfg.BatchSize,
		ProgressInterval:   cfg.ProgressInterval,
		MinRouteDistanceNm: valueOr(cfg.MinRouteDistanceNm, populate.DefaultMinRouteDistanceNm),
		MaxRouteDistanceNm: cfg.MaxRouteDistanceNm,
		AirportClasses:     classes,
		DevMode: populate.DevMode{
			Enabled:     cfg.DevMode.Enabled,
			AirportCode: cfg.DevMode.AirportCode,
			RadiusNm:    cfg.DevMode.RadiusNm,
		},
	}
}

// valueOr dereferences an optional setting, falling back to def when unset
func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
