package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/cosmoos/cosmo-go/pkg/health"
)

// Supported storage providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderMySQL    = "mysql"
)

// Config contains the complete configuration for a CosmoOS client.
//
// It includes settings for:
//   - Record store (where sessions, check-ins and health samples live)
//   - Health access (fallback authorization when none is stored)
//   - Cognitive heuristics (recovery factor, recency decay)
//   - Insights scheduling
//   - HTTP server and logging
//
// Example:
//
//	config := &core.Config{
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        SQLite:   core.SQLiteConfig{Path: "./cosmo.db"},
//	    },
//	}
type Config struct {
	// Store contains record store configuration.
	Store StoreConfig `json:"store"`

	// Health contains the fallback health authorization.
	Health HealthConfig `json:"health"`

	// Cognitive tunes the cognitive heuristics.
	Cognitive CognitiveConfig `json:"cognitive"`

	// Insights configures the correlation job.
	Insights InsightsConfig `json:"insights"`

	// Server configures the JSON API.
	Server ServerConfig `json:"server"`

	// Log configures logging.
	Log LogConfig `json:"log"`

	// SnowflakeNode is the node number used for record IDs (0-1023).
	SnowflakeNode int64 `json:"snowflake_node"`
}

// StoreConfig selects and configures the record store.
//
// Supported providers: sqlite, postgres, mysql
type StoreConfig struct {
	// Provider is the store provider name.
	Provider string `json:"provider"`

	SQLite   SQLiteConfig   `json:"sqlite"`
	Postgres PostgresConfig `json:"postgres"`
	MySQL    MySQLConfig    `json:"mysql"`
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	Path  string `json:"path"`
	Table string `json:"table,omitempty"`
}

// PostgresConfig configures the PostgreSQL store.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Table    string `json:"table,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty"`
}

// MySQLConfig configures the MySQL store.
type MySQLConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Table    string `json:"table,omitempty"`
}

// HealthConfig is the authorization used when no health_authorization
// record has been stored.
type HealthConfig struct {
	Authorized bool   `json:"authorized"`
	Tier       string `json:"tier"`
}

// CognitiveConfig tunes the cognitive heuristics.
type CognitiveConfig struct {
	// RecoveryFactor is the constant recovery sub-score (0-100).
	RecoveryFactor float64 `json:"recovery_factor"`

	// DecayRate is the per-day recency decay for focus window prediction.
	DecayRate float64 `json:"decay_rate"`
}

// InsightsConfig configures the daily correlation job.
type InsightsConfig struct {
	// ScheduleHour is the local hour (0-23) at which the job runs.
	ScheduleHour int `json:"schedule_hour"`

	// WindowDays is how many days of history are correlated.
	WindowDays int `json:"window_days"`
}

// ServerConfig configures the JSON API.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a logrus level name (debug, info, warn, error).
	Level string `json:"level"`

	// Format is "text" or "json".
	Format string `json:"format"`
}

// DefaultConfig returns a configuration that stores everything in a local
// SQLite file.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Provider: ProviderSQLite,
			SQLite:   SQLiteConfig{Path: "./cosmo.db", Table: "records"},
		},
		Health: HealthConfig{Tier: string(health.TierNone)},
		Cognitive: CognitiveConfig{
			RecoveryFactor: 75,
			DecayRate:      0.1,
		},
		Insights: InsightsConfig{ScheduleHour: 4, WindowDays: 30},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DATABASE, POSTGRES_TABLE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE, MYSQL_TABLE
//   - HEALTH_AUTHORIZED, HEALTH_TIER
//   - COGNITIVE_RECOVERY_FACTOR, COGNITIVE_DECAY_RATE
//   - INSIGHTS_SCHEDULE_HOUR, INSIGHTS_WINDOW_DAYS
//   - SERVER_ADDR, LOG_LEVEL, LOG_FORMAT, SNOWFLAKE_NODE
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	config := DefaultConfig()

	config.Store.Provider = strings.ToLower(getEnvOrDefault("DATABASE_PROVIDER", ProviderSQLite))
	config.Store.SQLite = SQLiteConfig{
		Path:  getEnvOrDefault("SQLITE_PATH", "./cosmo.db"),
		Table: getEnvOrDefault("SQLITE_TABLE", "records"),
	}

	pgPort, err := getEnvInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, NewCosmoError("LoadConfigFromEnv", err)
	}
	config.Store.Postgres = PostgresConfig{
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     pgPort,
		User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Database: getEnvOrDefault("POSTGRES_DATABASE", "cosmo"),
		Table:    getEnvOrDefault("POSTGRES_TABLE", "records"),
		SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	myPort, err := getEnvInt("MYSQL_PORT", 3306)
	if err != nil {
		return nil, NewCosmoError("LoadConfigFromEnv", err)
	}
	config.Store.MySQL = MySQLConfig{
		Host:     getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
		Port:     myPort,
		User:     getEnvOrDefault("MYSQL_USER", "root"),
		Password: os.Getenv("MYSQL_PASSWORD"),
		Database: getEnvOrDefault("MYSQL_DATABASE", "cosmo"),
		Table:    getEnvOrDefault("MYSQL_TABLE", "records"),
	}

	config.Health.Authorized = os.Getenv("HEALTH_AUTHORIZED") == "true"
	config.Health.Tier = getEnvOrDefault("HEALTH_TIER", string(health.TierFull))
	if !config.Health.Authorized {
		config.Health.Tier = string(health.TierNone)
	}

	if config.Cognitive.RecoveryFactor, err = getEnvFloat("COGNITIVE_RECOVERY_FACTOR", 75); err != nil {
		return nil, NewCosmoError("LoadConfigFromEnv", err)
	}
	if config.Cognitive.DecayRate, err = getEnvFloat("COGNITIVE_DECAY_RATE", 0.1); err != nil {
		return nil, NewCosmoError("LoadConfigFromEnv", err)
	}

	if config.Insights.ScheduleHour, err = getEnvInt("INSIGHTS_SCHEDULE_HOUR", 4); err != nil {
		return nil, NewCosmoError("LoadConfigFromEnv", err)
	}
	if config.Insights.WindowDays, err = getEnvInt("INSIGHTS_WINDOW_DAYS", 30); err != nil {
		return nil, NewCosmoError("LoadConfigFromEnv", err)
	}

	config.Server.Addr = getEnvOrDefault("SERVER_ADDR", ":8080")
	config.Log.Level = getEnvOrDefault("LOG_LEVEL", "info")
	config.Log.Format = getEnvOrDefault("LOG_FORMAT", "text")

	node, err := getEnvInt("SNOWFLAKE_NODE", 0)
	if err != nil {
		return nil, NewCosmoError("LoadConfigFromEnv", err)
	}
	config.SnowflakeNode = int64(node)

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file. Fields absent from
// the file keep their DefaultConfig values.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewCosmoError("LoadConfigFromJSON", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, NewCosmoError("LoadConfigFromJSON", err)
	}

	return config, nil
}

// Validate validates the configuration.
//
// Checks that:
//   - the store provider is known and its required fields are set
//   - the health tier parses
//   - the insights hour is within 0-23
//   - the snowflake node is within 0-1023
//
// Returns an error wrapping ErrInvalidConfig if validation fails.
func (c *Config) Validate() error {
	switch c.Store.Provider {
	case ProviderSQLite:
		if c.Store.SQLite.Path == "" {
			return NewCosmoError("Validate", fmt.Errorf("%w: sqlite path is empty", ErrInvalidConfig))
		}
	case ProviderPostgres:
		if c.Store.Postgres.Host == "" || c.Store.Postgres.Database == "" {
			return NewCosmoError("Validate", fmt.Errorf("%w: postgres host and database are required", ErrInvalidConfig))
		}
	case ProviderMySQL:
		if c.Store.MySQL.Host == "" || c.Store.MySQL.Database == "" {
			return NewCosmoError("Validate", fmt.Errorf("%w: mysql host and database are required", ErrInvalidConfig))
		}
	default:
		return NewCosmoError("Validate", fmt.Errorf("%w: unknown store provider %q", ErrInvalidConfig, c.Store.Provider))
	}

	if c.Health.Tier != "" && health.ParseTier(c.Health.Tier) == health.TierNone && c.Health.Tier != string(health.TierNone) {
		return NewCosmoError("Validate", fmt.Errorf("%w: unknown health tier %q", ErrInvalidConfig, c.Health.Tier))
	}
	if c.Insights.ScheduleHour < 0 || c.Insights.ScheduleHour > 23 {
		return NewCosmoError("Validate", fmt.Errorf("%w: insights schedule hour must be 0-23", ErrInvalidConfig))
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return NewCosmoError("Validate", fmt.Errorf("%w: snowflake node must be 0-1023", ErrInvalidConfig))
	}
	if c.Cognitive.DecayRate < 0 {
		return NewCosmoError("Validate", fmt.Errorf("%w: decay rate must not be negative", ErrInvalidConfig))
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, value)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, value)
	}
	return f, nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
