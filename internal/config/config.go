package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage backend selectors.
const (
	StorageJSON     = "json"
	StoragePostgres = "postgres"
)

// Config holds the service configuration, populated from the environment.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	Storage  string `envconfig:"STORAGE" default:"json"`
	DataFile string `envconfig:"DATA_FILE" default:"bank_data.json"`

	// Either a full DSN or the discrete DB_* parts (Docker friendly).
	DBConnStr  string `envconfig:"DB_CONN_STR"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"cashpoint"`

	ReceiptDir         string `envconfig:"RECEIPT_DIR" default:"receipts"`
	IdleTimeoutSeconds int    `envconfig:"IDLE_TIMEOUT_SECONDS" default:"120"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// Missing .env is fine; system environment still applies.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if cfg.Storage != StorageJSON && cfg.Storage != StoragePostgres {
		return nil, fmt.Errorf("unknown STORAGE %q: want %q or %q", cfg.Storage, StorageJSON, StoragePostgres)
	}
	return &cfg, nil
}

// PostgresConnStr returns the DSN, building it from the discrete parts when
// DB_CONN_STR is not set.
func (c *Config) PostgresConnStr() string {
	if c.DBConnStr != "" {
		return c.DBConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// IdleTimeout returns the session idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}
