package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/turbovets/taskhub/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Hierarchy     HierarchyConfig     `yaml:"hierarchy"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	MaxRequestBytes    int64    `yaml:"max_request_bytes"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration for the distributed rate limiter
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret"`
	TokenIssuer string        `yaml:"token_issuer"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// HierarchyConfig holds organization hierarchy traversal settings
type HierarchyConfig struct {
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	// BatchLoad loads all active organizations per traversal instead of
	// querying children level by level. Faster for small directories.
	BatchLoad bool `yaml:"batch_load"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// File sink; empty path disables file logging
	FilePath     string `yaml:"file_path"`
	FileMaxBytes int64  `yaml:"file_max_bytes"`
	FileMaxFiles int    `yaml:"file_max_files"`

	RetentionDays     int    `yaml:"retention_days"`
	RetentionSchedule string `yaml:"retention_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel `yaml:"-"`
	// LogLevelName is the string form used in YAML files
	LogLevelName string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// LoadConfig loads configuration from defaults, an optional YAML file, and
// environment variables, in that order of precedence.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("TASKHUB_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Observability.LogLevelName != "" {
		cfg.Observability.LogLevel = observability.ParseLogLevel(strings.ToLower(cfg.Observability.LogLevelName))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               "8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    30 * time.Second,
			HealthPort:         "9090",
			CORSAllowedOrigins: []string{"*"},
			MaxRequestBytes:    1 << 20,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Auth: AuthConfig{
			TokenIssuer: "taskhub",
			TokenTTL:    8 * time.Hour,
		},
		Hierarchy: HierarchyConfig{
			CacheSize: 1024,
			CacheTTL:  30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:           true,
			FileMaxBytes:      64 << 20,
			FileMaxFiles:      10,
			RetentionDays:     90,
			RetentionSchedule: "0 3 * * *",
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "taskhub",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	// Server
	c.Server.Host = getEnv("TASKHUB_HOST", c.Server.Host)
	c.Server.Port = getEnv("TASKHUB_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("TASKHUB_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("TASKHUB_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("TASKHUB_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("TASKHUB_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.HealthPort = getEnv("TASKHUB_HEALTH_PORT", c.Server.HealthPort)
	if origins := getEnv("TASKHUB_CORS_ALLOWED_ORIGINS", ""); origins != "" {
		c.Server.CORSAllowedOrigins = strings.Split(origins, ",")
	}
	c.Server.MaxRequestBytes = getEnvInt64("TASKHUB_MAX_REQUEST_BYTES", c.Server.MaxRequestBytes)

	// Database
	c.Database.URL = getEnv("TASKHUB_POSTGRES_URL", c.Database.URL)
	c.Database.MaxOpenConns = getEnvInt("TASKHUB_POSTGRES_MAX_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("TASKHUB_POSTGRES_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("TASKHUB_POSTGRES_CONN_LIFETIME", c.Database.ConnMaxLifetime)

	// Redis
	c.Redis.Enabled = getEnvBool("TASKHUB_REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("TASKHUB_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("TASKHUB_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("TASKHUB_REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvInt("TASKHUB_REDIS_POOL_SIZE", c.Redis.PoolSize)

	// Auth
	c.Auth.TokenSecret = getEnv("TASKHUB_TOKEN_SECRET", c.Auth.TokenSecret)
	c.Auth.TokenIssuer = getEnv("TASKHUB_TOKEN_ISSUER", c.Auth.TokenIssuer)
	c.Auth.TokenTTL = getEnvDuration("TASKHUB_TOKEN_TTL", c.Auth.TokenTTL)

	// Hierarchy
	c.Hierarchy.CacheSize = getEnvInt("TASKHUB_HIERARCHY_CACHE_SIZE", c.Hierarchy.CacheSize)
	c.Hierarchy.CacheTTL = getEnvDuration("TASKHUB_HIERARCHY_CACHE_TTL", c.Hierarchy.CacheTTL)
	c.Hierarchy.BatchLoad = getEnvBool("TASKHUB_HIERARCHY_BATCH_LOAD", c.Hierarchy.BatchLoad)

	// Audit
	c.Audit.Enabled = getEnvBool("TASKHUB_AUDIT_ENABLED", c.Audit.Enabled)
	c.Audit.FilePath = getEnv("TASKHUB_AUDIT_FILE_PATH", c.Audit.FilePath)
	c.Audit.FileMaxBytes = getEnvInt64("TASKHUB_AUDIT_FILE_MAX_BYTES", c.Audit.FileMaxBytes)
	c.Audit.FileMaxFiles = getEnvInt("TASKHUB_AUDIT_FILE_MAX_FILES", c.Audit.FileMaxFiles)
	c.Audit.RetentionDays = getEnvInt("TASKHUB_AUDIT_RETENTION_DAYS", c.Audit.RetentionDays)
	c.Audit.RetentionSchedule = getEnv("TASKHUB_AUDIT_RETENTION_SCHEDULE", c.Audit.RetentionSchedule)

	// Observability
	c.Observability.LogLevelName = getEnv("TASKHUB_LOG_LEVEL", c.Observability.LogLevelName)
	c.Observability.MetricsEnabled = getEnvBool("TASKHUB_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("TASKHUB_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("TASKHUB_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("TASKHUB_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("TASKHUB_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("TASKHUB_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("token secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.Hierarchy.CacheSize <= 0 {
		return fmt.Errorf("hierarchy cache size must be positive")
	}

	if c.Audit.Enabled && c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention days must be positive when auditing is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
