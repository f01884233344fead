package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	obs "github.com/Black-And-White-Club/hydro/internal/observability"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config struct to hold the configuration settings
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Mongo         MongoConfig         `yaml:"mongo"`
	Redis         RedisConfig         `yaml:"redis"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Contest       ContestConfig       `yaml:"contest"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig selects the document store backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// MongoConfig holds MongoDB configuration.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// RedisConfig holds the scoreboard cache configuration. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// NATSConfig holds NATS configuration. An empty URL keeps events in process.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the read-only HTTP surface configuration.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// ContestConfig tunes the contest module.
type ContestConfig struct {
	UpcomingLead time.Duration `yaml:"upcoming_lead"`
	Rules        []string      `yaml:"rules"`
	RecalcRate   float64       `yaml:"recalc_rate"`
	Queue        QueueConfig   `yaml:"queue"`
}

// QueueConfig tunes background recalculation workers.
type QueueConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	Tracing        bool   `yaml:"tracing"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB value: %v", err)
		}
		cfg.Redis.DB = n
	}
	if v := os.Getenv("REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_TTL value: %v", err)
		}
		cfg.Redis.TTL = d
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("CONTEST_UPCOMING_LEAD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CONTEST_UPCOMING_LEAD value: %v", err)
		}
		cfg.Contest.UpcomingLead = d
	}
	if v := os.Getenv("CONTEST_RULES"); v != "" {
		cfg.Contest.Rules = splitList(v)
	}
	if v := os.Getenv("CONTEST_RECALC_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid CONTEST_RECALC_RATE value: %v", err)
		}
		cfg.Contest.RecalcRate = f
	}
	if v := os.Getenv("CONTEST_QUEUE_MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CONTEST_QUEUE_MAX_WORKERS value: %v", err)
		}
		cfg.Contest.Queue.MaxWorkers = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		cfg.Observability.Tracing = v == "true"
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverPostgres
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "hydro"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Contest.UpcomingLead == 0 {
		c.Contest.UpcomingLead = 24 * time.Hour
	}
	if len(c.Contest.Rules) == 0 {
		c.Contest.Rules = []string{"acm", "oi", "homework"}
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
}

// Validate reports configuration that cannot start the server.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI environment variable not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Contest.RecalcRate < 0 {
		return fmt.Errorf("contest.recalc_rate must not be negative")
	}
	return nil
}

func ToObsConfig(appCfg *Config) obs.Config {
	return obs.Config{
		ServiceName: "hydro",
		Environment: appCfg.Observability.Environment,
		LogLevel:    appCfg.Observability.LogLevel,
		Tracing:     appCfg.Observability.Tracing,
	}
}
