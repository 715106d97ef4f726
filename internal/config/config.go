package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
	Worker     WorkerConfig     `yaml:"worker"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration. Driver is
// postgres or sqlite; for sqlite Database is the file path.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	Migrate         bool          `yaml:"migrate"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// RedisConfig holds the run statistics store
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds command worker configuration
type WorkerConfig struct {
	ID              string        `yaml:"id"`
	Concurrency     int           `yaml:"concurrency"`
	CommandTimeout  time.Duration `yaml:"command_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GenerationConfig holds job generation and scheduling settings
type GenerationConfig struct {
	DisableScheduler   bool          `yaml:"disable_scheduler"`
	Interval           time.Duration `yaml:"interval"`
	Warmup             time.Duration `yaml:"warmup"`
	Targets            TargetsConfig `yaml:"targets"`
	MinJobsThreshold   int           `yaml:"min_jobs_threshold"`
	CargoRatio         *float64      `yaml:"cargo_ratio"`
	BatchSize          int           `yaml:"batch_size"`
	ProgressInterval   int           `yaml:"progress_interval"`
	MinRouteDistanceNm *float64      `yaml:"min_route_distance_nm"`
	MaxRouteDistanceNm float64       `yaml:"max_route_distance_nm"`
	AirportClasses     []string      `yaml:"airport_classes"`
	Parallelism        int           `yaml:"parallelism"`
	DevMode            DevModeConfig `yaml:"dev_mode"`
}

// TargetsConfig is the desired available job count per airport class. An
// omitted class takes its default; an explicit 0 disables generation for it.
type TargetsConfig struct {
	Large  *int `yaml:"large"`
	Medium *int `yaml:"medium"`
	Small  *int `yaml:"small"`
	Other  *int `yaml:"other"`
}

// DevModeConfig restricts generation to the airports around one airport
type DevModeConfig struct {
	Enabled     bool    `yaml:"enabled"`
	AirportCode string  `yaml:"airport_code"`
	RadiusNm    float64 `yaml:"radius_nm"`
}

// Load reads and parses the configuration file and fills in defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills zero values with defaults
func (c *Config) ApplyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.RabbitMQ.Exchange.Type == "" {
		c.RabbitMQ.Exchange.Type = "topic"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "jobgen.command"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "jobgen:stats"
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	if c.Worker.ID == "" {
		if host, err := os.Hostname(); err == nil {
			c.Worker.ID = host
		} else {
			c.Worker.ID = "worker"
		}
	}
	if c.Worker.ShutdownTimeout <= 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}
	c.Generation.applyDefaults()
}

func (g *GenerationConfig) applyDefaults() {
	if g.Interval <= 0 {
		g.Interval = time.Hour
	}
	if g.Warmup <= 0 {
		g.Warmup = 30 * time.Second
	}
	setDefaultInt(&g.Targets.Large, 25)
	setDefaultInt(&g.Targets.Medium, 15)
	setDefaultInt(&g.Targets.Small, 8)
	setDefaultInt(&g.Targets.Other, *g.Targets.Small/2)
	if g.MinJobsThreshold <= 0 {
		g.MinJobsThreshold = 5
	}
	if g.CargoRatio == nil {
		ratio := 0.7
		g.CargoRatio = &ratio
	}
	if g.BatchSize <= 0 {
		g.BatchSize = 500
	}
	if g.ProgressInterval <= 0 {
		g.ProgressInterval = 1000
	}
	if g.MinRouteDistanceNm == nil {
		minNm := 10.0
		g.MinRouteDistanceNm = &minNm
	}
	if g.MaxRouteDistanceNm <= 0 {
		g.MaxRouteDistanceNm = 2000
	}
	if len(g.AirportClasses) == 0 {
		g.AirportClasses = []string{"large_airport", "medium_airport", "small_airport"}
	}
	if g.Parallelism <= 0 {
		g.Parallelism = 1
	}
	if g.DevMode.Enabled && g.DevMode.RadiusNm <= 0 {
		g.DevMode.RadiusNm = 200
	}
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	return c.validateRabbitMQ(false)
}

// ValidateWorkerConfig checks the settings the worker service needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateRabbitMQ(true); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.CommandTimeout < 0 {
		return fmt.Errorf("worker command_timeout must not be negative")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	return c.ValidateGenerationConfig()
}

// ValidateGenerationConfig checks the generation settings
func (c *Config) ValidateGenerationConfig() error {
	g := c.Generation

	if g.CargoRatio != nil && (*g.CargoRatio < 0 || *g.CargoRatio > 1) {
		return fmt.Errorf("generation cargo_ratio must be between 0 and 1")
	}

	targets := []struct {
		class string
		value *int
	}{
		{"large", g.Targets.Large},
		{"medium", g.Targets.Medium},
		{"small", g.Targets.Small},
		{"other", g.Targets.Other},
	}
	for _, target := range targets {
		if target.value != nil && *target.value < 0 {
			return fmt.Errorf("generation target for %s must not be negative", target.class)
		}
	}

	if g.MinRouteDistanceNm != nil {
		if *g.MinRouteDistanceNm < 0 {
			return fmt.Errorf("generation min_route_distance_nm must not be negative")
		}
		if *g.MinRouteDistanceNm >= g.MaxRouteDistanceNm {
			return fmt.Errorf("generation min_route_distance_nm must be below max_route_distance_nm")
		}
	}

	for _, class := range g.AirportClasses {
		switch class {
		case "large_airport", "medium_airport", "small_airport", "other":
		default:
			return fmt.Errorf("unknown airport class: %q", class)
		}
	}

	if g.DevMode.Enabled && g.DevMode.AirportCode == "" {
		return fmt.Errorf("generation dev_mode airport_code is required when dev mode is enabled")
	}

	return nil
}

func setDefaultInt(p **int, def int) {
	if *p == nil {
		*p = &def
	}
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ(needQueue bool) error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if needQueue && c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
