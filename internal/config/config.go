package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"fintrack-sync/internal/model"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Cache       CacheConfig
	Gateway     GatewayConfig
	Coordinator CoordinatorConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"fintrack-sync"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"` // json or console

	// APIKeys guards /api/v1. Empty disables the check.
	APIKeys []string `envconfig:"API_KEYS" default:""`
}

// Durable cache metadata backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// CacheConfig holds cache settings.
type CacheConfig struct {
	ShortTTL      time.Duration `envconfig:"CACHE_TTL_SHORT" default:"1m"`
	MediumTTL     time.Duration `envconfig:"CACHE_TTL_MEDIUM" default:"5m"`
	LongTTL       time.Duration `envconfig:"CACHE_TTL_LONG" default:"1h"`
	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"30m"`

	// Backend stores durable expiry metadata: memory, sqlite, mysql, postgres or redis.
	Backend    string `envconfig:"CACHE_BACKEND" default:"memory"`
	SQLitePath string `envconfig:"CACHE_SQLITE_PATH" default:"./data/cache.db"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisKey      string `envconfig:"REDIS_CACHE_KEY" default:"fintrack:cache:metadata"`

	// MySQL and PostgreSQL settings
	DBHost     string `envconfig:"CACHE_DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"CACHE_DB_PORT" default:"0"`
	DBName     string `envconfig:"CACHE_DB_NAME" default:"fintrack"`
	DBUser     string `envconfig:"CACHE_DB_USER" default:"fintrack"`
	DBPassword string `envconfig:"CACHE_DB_PASS" default:""`
	DBSSLMode  string `envconfig:"CACHE_DB_SSLMODE" default:"disable"`
}

// Remote document store types.
const (
	GatewayMemory  = "memory"
	GatewayMongoDB = "mongodb"
)

// GatewayConfig holds remote document store settings.
type GatewayConfig struct {
	Type     string        `envconfig:"GATEWAY_TYPE" default:"memory"` // memory or mongodb
	Timeout  time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"15s"`
	SeedFile string        `envconfig:"GATEWAY_SEED_FILE" default:""`

	// MongoDB settings
	MongoURI        string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"fintrack"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"documents"`
}

// CoordinatorConfig holds fetch coordinator settings.
type CoordinatorConfig struct {
	Coalesce bool `envconfig:"COORDINATOR_COALESCE" default:"true"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Durations returns the TTL for each duration class.
func (c *CacheConfig) Durations() model.Durations {
	return model.Durations{
		Short:  c.ShortTTL,
		Medium: c.MediumTTL,
		Long:   c.LongTTL,
	}
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MySQLDSN returns the MySQL data source name.
func (c *CacheConfig) MySQLDSN() string {
	port := c.DBPort
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.DBUser, c.DBPassword, c.DBHost, port, c.DBName)
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *CacheConfig) PostgresDSN() string {
	port := c.DBPort
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, port, c.DBName, c.DBSSLMode)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory, BackendSQLite, BackendMySQL, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Gateway.Type {
	case GatewayMemory, GatewayMongoDB:
	default:
		return fmt.Errorf("unknown gateway type %q", c.Gateway.Type)
	}
	for name, d := range map[string]time.Duration{
		"CACHE_TTL_SHORT":      c.Cache.ShortTTL,
		"CACHE_TTL_MEDIUM":     c.Cache.MediumTTL,
		"CACHE_TTL_LONG":       c.Cache.LongTTL,
		"CACHE_SWEEP_INTERVAL": c.Cache.SweepInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)
	cfg.Gateway.Type = strings.ToLower(cfg.Gateway.Type)
	if cfg.Gateway.Type == "mongo" {
		cfg.Gateway.Type = GatewayMongoDB
	}
	cfg.App.APIKeys = compact(cfg.App.APIKeys)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
