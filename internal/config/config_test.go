package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "postgres", cfg.Database.Driver)
			assert.Equal(t, "flight_jobs", cfg.Database.Database)
			assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
			assert.Equal(t, "jobgen", cfg.RabbitMQ.Exchange.Name)
			assert.Equal(t, "jobgen.commands", cfg.RabbitMQ.Queue.Name)
			assert.Equal(t, "flight-jobs-worker", cfg.App.Name)
			assert.True(t, cfg.Redis.Enabled)
			assert.Equal(t, "worker-1", cfg.Worker.ID)
			assert.Equal(t, 10*time.Minute, cfg.Worker.CommandTimeout)

			g := cfg.Generation
			assert.Equal(t, 30*time.Minute, g.Interval)
			assert.Equal(t, 5*time.Second, g.Warmup)
			assert.Equal(t, TargetsConfig{Large: ptr(30), Medium: ptr(12), Small: ptr(6), Other: ptr(3)}, g.Targets)
			require.NotNil(t, g.CargoRatio)
			assert.Equal(t, 0.0, *g.CargoRatio, "an explicit zero ratio is kept")
			assert.Equal(t, 250, g.BatchSize)
			assert.Equal(t, []string{"large_airport", "medium_airport"}, g.AirportClasses)
			assert.Equal(t, 2, g.Parallelism)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "topic", cfg.RabbitMQ.Exchange.Type)
	assert.Equal(t, "jobgen.command", cfg.RabbitMQ.RoutingKey)
	assert.Equal(t, "jobgen:stats", cfg.Redis.KeyPrefix)
	assert.Equal(t, 1, cfg.Worker.Concurrency)
	assert.NotEmpty(t, cfg.Worker.ID)
	assert.Equal(t, 30*time.Second, cfg.Worker.ShutdownTimeout)

	g := cfg.Generation
	assert.False(t, g.DisableScheduler)
	assert.Equal(t, time.Hour, g.Interval)
	assert.Equal(t, 30*time.Second, g.Warmup)
	assert.Equal(t, TargetsConfig{Large: ptr(25), Medium: ptr(15), Small: ptr(8), Other: ptr(4)}, g.Targets)
	assert.Equal(t, 5, g.MinJobsThreshold)
	require.NotNil(t, g.CargoRatio)
	assert.Equal(t, 0.7, *g.CargoRatio)
	assert.Equal(t, 500, g.BatchSize)
	assert.Equal(t, 1000, g.ProgressInterval)
	require.NotNil(t, g.MinRouteDistanceNm)
	assert.Equal(t, 10.0, *g.MinRouteDistanceNm)
	assert.Equal(t, 2000.0, g.MaxRouteDistanceNm)
	assert.Equal(t, []string{"large_airport", "medium_airport", "small_airport"}, g.AirportClasses)
	assert.Equal(t, 1, g.Parallelism)
	assert.Zero(t, g.DevMode.RadiusNm)
}

func validConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "flight_jobs",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "jobgen"},
			Queue:    QueueConfig{Name: "jobgen.commands"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config"},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			errString: "database name is required",
		},
		{
			name:      "unknown driver",
			mutate:    func(c *Config) { c.Database.Driver = "mysql" },
			errString: "unsupported database driver",
		},
		{
			name: "sqlite needs no host",
			mutate: func(c *Config) {
				c.Database = DatabaseConfig{Driver: "sqlite", Database: "dev.db"}
			},
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			errString: "rabbitmq exchange name is required",
		},
		{
			name:   "api does not consume a queue",
			mutate: func(c *Config) { c.RabbitMQ.Queue.Name = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := cfg.ValidateAPIConfig()
			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config"},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "negative command timeout",
			mutate:    func(c *Config) { c.Worker.CommandTimeout = -time.Second },
			errString: "command_timeout",
		},
		{
			name:      "redis without address",
			mutate:    func(c *Config) { c.Redis.Enabled = true },
			errString: "redis addr is required",
		},
		{
			name:      "cargo ratio above one",
			mutate:    func(c *Config) { c.Generation.CargoRatio = ptr(1.5) },
			errString: "cargo_ratio",
		},
		{
			name:      "inverted route bounds",
			mutate:    func(c *Config) { c.Generation.MinRouteDistanceNm = ptr(3000.0) },
			errString: "min_route_distance_nm",
		},
		{
			name:      "negative route minimum",
			mutate:    func(c *Config) { c.Generation.MinRouteDistanceNm = ptr(-1.0) },
			errString: "min_route_distance_nm must not be negative",
		},
		{
			name:      "negative class target",
			mutate:    func(c *Config) { c.Generation.Targets.Medium = ptr(-5) },
			errString: "target for medium must not be negative",
		},
		{
			name: "zero targets and zero route minimum",
			mutate: func(c *Config) {
				c.Generation.Targets = TargetsConfig{Large: ptr(0), Medium: ptr(0), Small: ptr(0), Other: ptr(0)}
				c.Generation.MinRouteDistanceNm = ptr(0.0)
			},
		},
		{
			name:      "unknown airport class",
			mutate:    func(c *Config) { c.Generation.AirportClasses = []string{"heliport"} },
			errString: "unknown airport class",
		},
		{
			name:      "dev mode without airport",
			mutate:    func(c *Config) { c.Generation.DevMode.Enabled = true },
			errString: "airport_code is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := cfg.ValidateWorkerConfig()
			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})

	t.Run("sqlite development config", func(t *testing.T) {
		cfg, err := Load("testdata/sqlite_dev.yaml")
		require.NoError(t, err)

		require.NoError(t, cfg.ValidateWorkerConfig())
		assert.True(t, cfg.Database.Migrate)
		assert.Equal(t, "KBOS", cfg.Generation.DevMode.AirportCode)
		assert.Equal(t, 200.0, cfg.Generation.DevMode.RadiusNm)
	})

	t.Run("explicit zero targets are kept", func(t *testing.T) {
		cfg, err := Load("testdata/zero_targets.yaml")
		require.NoError(t, err)
		require.NoError(t, cfg.ValidateWorkerConfig())

		g := cfg.Generation
		assert.Equal(t, TargetsConfig{Large: ptr(40), Medium: ptr(15), Small: ptr(0), Other: ptr(0)}, g.Targets,
			"omitted classes take defaults, explicit zeros stay zero")
		require.NotNil(t, g.MinRouteDistanceNm)
		assert.Zero(t, *g.MinRouteDistanceNm)
	})
}

func TestPortConstants(t *testing.T) {
	assert.Equal(t, 1, MinPort)
	assert.Equal(t, 65535, MaxPort)
}
