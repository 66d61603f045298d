package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port" env:"SERVER_PORT"`
		Mode            string        `yaml:"mode" env:"SERVER_MODE"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		SQLitePath      string `yaml:"sqlite_path" env:"DB_SQLITE_PATH"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	// Auth configures verification of principal tokens. Tokens are issued elsewhere.
	Auth struct {
		Secret string `yaml:"secret" env:"AUTH_SECRET"`
		Issuer string `yaml:"issuer" env:"AUTH_ISSUER"`
	} `yaml:"auth"`

	Building struct {
		Floors        int   `yaml:"floors" env:"BUILDING_FLOORS"`
		PremiumFloors []int `yaml:"premium_floors" env:"BUILDING_PREMIUM_FLOORS"`
		BedsPerRoom   int   `yaml:"beds_per_room" env:"BUILDING_BEDS_PER_ROOM"`
		SeedOnStart   bool  `yaml:"seed_on_start" env:"BUILDING_SEED_ON_START"`
	} `yaml:"building"`

	Bootstrap struct {
		ManagerName  string `yaml:"manager_name" env:"BOOTSTRAP_MANAGER_NAME"`
		ManagerEmail string `yaml:"manager_email" env:"BOOTSTRAP_MANAGER_EMAIL"`
	} `yaml:"bootstrap"`

	Backup struct {
		Driver       string `yaml:"driver" env:"BACKUP_DRIVER"`
		Dir          string `yaml:"dir" env:"BACKUP_DIR"`
		Bucket       string `yaml:"bucket" env:"BACKUP_S3_BUCKET"`
		Region       string `yaml:"region" env:"BACKUP_S3_REGION"`
		Endpoint     string `yaml:"endpoint" env:"BACKUP_S3_ENDPOINT"`
		UsePathStyle bool   `yaml:"use_path_style" env:"BACKUP_S3_PATH_STYLE"`
		Prefix       string `yaml:"prefix" env:"BACKUP_S3_PREFIX"`
	} `yaml:"backup"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		Stream   string `yaml:"stream" env:"REDIS_AUDIT_STREAM"`
	} `yaml:"redis"`

	SMTP struct {
		Host     string `yaml:"host" env:"SMTP_HOST"`
		Port     int    `yaml:"port" env:"SMTP_PORT"`
		Username string `yaml:"username" env:"SMTP_USERNAME"`
		Password string `yaml:"password" env:"SMTP_PASSWORD"`
		From     string `yaml:"from" env:"SMTP_FROM"`
	} `yaml:"smtp"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`

	Tracing struct {
		Enabled     bool   `yaml:"enabled" env:"TRACING_ENABLED"`
		Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
		Insecure    bool   `yaml:"insecure" env:"TRACING_INSECURE"`
	} `yaml:"tracing"`

	RateLimit struct {
		RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS"`
		Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"ratelimit"`
}

// Database drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Backup drivers
const (
	BackupLocal = "local"
	BackupS3    = "s3"
)

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load default config with sane defaults
	config := &Config{}
	setDefaults(config)

	// Try to read config file if it exists
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.ShutdownTimeout = 10 * time.Second

	// Database defaults
	config.Database.Driver = DriverSQLite
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "housing"
	config.Database.SSLMode = "disable"
	config.Database.SQLitePath = "data/housing.db"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Auth.Issuer = "housing.local"

	config.Building.Floors = 6
	config.Building.BedsPerRoom = 3
	config.Building.SeedOnStart = true

	config.Bootstrap.ManagerName = "Housing Manager"
	config.Bootstrap.ManagerEmail = "manager@housing.local"

	config.Backup.Driver = BackupLocal
	config.Backup.Dir = "backups"

	config.Redis.Stream = "housing:audit"

	config.SMTP.Port = 587

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"

	config.Tracing.ServiceName = "housing-api"

	config.RateLimit.RPS = 50
	config.RateLimit.Burst = 100

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	config.Database.Driver = strings.ToLower(config.Database.Driver)
	switch config.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if config.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid connection max lifetime: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Building.Floors < 1 {
		return fmt.Errorf("building must have at least one floor")
	}
	if config.Building.BedsPerRoom < 1 {
		return fmt.Errorf("beds per room must be positive")
	}
	for _, floor := range config.Building.PremiumFloors {
		if floor < 1 || floor > config.Building.Floors {
			return fmt.Errorf("premium floor %d is outside the building", floor)
		}
	}

	switch config.Backup.Driver {
	case BackupLocal:
		if config.Backup.Dir == "" {
			return fmt.Errorf("backup directory is required")
		}
	case BackupS3:
		if config.Backup.Bucket == "" {
			return fmt.Errorf("backup bucket is required for s3 backups")
		}
	default:
		return fmt.Errorf("unsupported backup driver %q", config.Backup.Driver)
	}

	if config.RateLimit.RPS < 0 || config.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production" || c.Server.Mode == "release"
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
