package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    string
		wantErr bool
	}{
		{
			name: "postgres",
			config: Config{
				Driver: DriverPostgres, Host: "db", Port: 5432, User: "jobs",
				Password: "secret", Database: "flight_jobs", SSLMode: "disable",
			},
			want: "host=db port=5432 user=jobs password=secret dbname=flight_jobs sslmode=disable",
		},
		{
			name:   "empty driver defaults to postgres",
			config: Config{Host: "db", Port: 5432, Database: "flight_jobs"},
			want:   "host=db port=5432 user= password= dbname=flight_jobs sslmode=",
		},
		{
			name:   "sqlite",
			config: Config{Driver: DriverSQLite, Database: "dev.db"},
			want:   "dev.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		},
		{
			name:    "unknown driver",
			config:  Config{Driver: "oracle"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := tt.config.DSN()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported database driver")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dsn)
		})
	}
}

func TestNewClient_SQLite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient(&Config{
		Driver:   DriverSQLite,
		Database: filepath.Join(t.TempDir(), "jobs.db"),
	}, logger)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.HealthCheck(context.Background()))
	assert.Equal(t, 1, client.GetDB().Stats().MaxOpenConnections)
	assert.Contains(t, client.Stats(), "MaxOpenConns: 1")
	assert.Equal(t, "SELECT * FROM jobs WHERE id = ?", client.GetDB().Rebind("SELECT * FROM jobs WHERE id = ?"))
}
