package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Archive  ArchiveConfig
	Listener ListenerConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"0"` // 0: unlimited, SSE streams stay open
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"giftcanvas-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// RedisConfig holds Redis connection settings. Redis is the system of
// record for event logs, the gift ledger, job queues and account records.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DatabaseConfig holds MySQL connection settings (for activation keys).
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"giftcanvas"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// ArchiveConfig holds settings for the completed-job archive.
type ArchiveConfig struct {
	Path              string        `envconfig:"ARCHIVE_DB_PATH" default:"./data/jobs.db"`
	RetentionPeriod   time.Duration `envconfig:"ARCHIVE_RETENTION" default:"720h"`
	RetentionInterval time.Duration `envconfig:"ARCHIVE_RETENTION_INTERVAL" default:"24h"`
}

// ListenerConfig holds live-connection settings.
type ListenerConfig struct {
	Provider       string        `envconfig:"LIVEFEED_PROVIDER" default:"sim"`
	ConnectTimeout time.Duration `envconfig:"LISTENER_CONNECT_TIMEOUT" default:"10s"`
}

// WorkerConfig holds queue-consumer settings.
type WorkerConfig struct {
	// PopWait bounds the blocking queue pop so cancellation is observed
	// promptly. It is a responsiveness knob, not a correctness one.
	PopWait time.Duration `envconfig:"WORKER_POP_WAIT" default:"2s"`

	// ProcessDelay is the simulated drawing time used by the default
	// processor. The real robot/plugin integration replaces it.
	ProcessDelay time.Duration `envconfig:"WORKER_PROCESS_DELAY" default:"5s"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in host:port format.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DSN returns the MySQL data source name.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
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
