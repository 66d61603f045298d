package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 6, cfg.Building.Floors)
	assert.Equal(t, 3, cfg.Building.BedsPerRoom)
	assert.Equal(t, BackupLocal, cfg.Backup.Driver)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
  mode: production
  shutdown_timeout: 5s
database:
  driver: MEMORY
building:
  floors: 4
  premium_floors: [4]
ratelimit:
  rps: 2.5
  burst: 5
`)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("BUILDING_PREMIUM_FLOORS", "3, 4")
	t.Setenv("RATE_LIMIT_RPS", "7.5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, []int{3, 4}, cfg.Building.PremiumFloors)
	assert.Equal(t, 7.5, cfg.RateLimit.RPS)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: oracle\n"},
		{"premium floor outside building", "building:\n  floors: 2\n  premium_floors: [3]\n"},
		{"no beds", "building:\n  beds_per_room: 0\n"},
		{"s3 without bucket", "backup:\n  driver: s3\n"},
		{"negative rate", "ratelimit:\n  rps: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestGetPostgresConnectionString(t *testing.T) {
	cfg := &Config{}
	cfg.Database.User = "housing"
	cfg.Database.Password = "secret"
	cfg.Database.Host = "db"
	cfg.Database.Port = "5432"
	cfg.Database.DBName = "housing"

	assert.Equal(t, "postgres://housing:secret@db:5432/housing?sslmode=disable", cfg.GetPostgresConnectionString())
}
