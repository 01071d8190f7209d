package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Kafka     KafkaConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
}

type ServerConfig struct {
	Port            string `mapstructure:"SERVER_PORT"`
	Host            string `mapstructure:"SERVER_HOST"`
	Env             string `mapstructure:"ENV"`
	ReadTimeout     string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout    string `mapstructure:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout string `mapstructure:"SERVER_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"DATABASE_URL"`
	MaxOpenConns   int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns   int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	MigrationsPath string `mapstructure:"DATABASE_MIGRATIONS_PATH"`
	AutoMigrate    bool   `mapstructure:"DATABASE_AUTO_MIGRATE"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	CacheTTL string `mapstructure:"REDIS_CACHE_TTL"`
}

type KafkaConfig struct {
	Brokers      string `mapstructure:"KAFKA_BROKERS"`
	AuditTopic   string `mapstructure:"KAFKA_AUDIT_TOPIC"`
	WriteTimeout string `mapstructure:"KAFKA_WRITE_TIMEOUT"`
}

type SchedulerConfig struct {
	OverdueSpec string `mapstructure:"SCHEDULER_OVERDUE_SPEC"`
	Timezone    string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	MinTenureMonths int `mapstructure:"MIN_TENURE_MONTHS"`
	MaxTenureMonths int `mapstructure:"MAX_TENURE_MONTHS"`
	DueDayOfMonth   int `mapstructure:"DUE_DAY_OF_MONTH"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":              "8080",
	"SERVER_HOST":              "0.0.0.0",
	"ENV":                      "development",
	"SERVER_READ_TIMEOUT":      "15s",
	"SERVER_WRITE_TIMEOUT":     "15s",
	"SERVER_SHUTDOWN_TIMEOUT":  "10s",
	"DATABASE_URL":             "",
	"DATABASE_MAX_OPEN_CONNS":  25,
	"DATABASE_MAX_IDLE_CONNS":  5,
	"DATABASE_MIGRATIONS_PATH": "file://migrations",
	"DATABASE_AUTO_MIGRATE":    false,
	"REDIS_HOST":               "",
	"REDIS_PORT":               "6379",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"REDIS_CACHE_TTL":          "5m",
	"KAFKA_BROKERS":            "",
	"KAFKA_AUDIT_TOPIC":        "loan.audit",
	"KAFKA_WRITE_TIMEOUT":      "5s",
	"SCHEDULER_OVERDUE_SPEC":   "5 0 * * *",
	"SCHEDULER_TIMEZONE":       "UTC",
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "json",
	"MIN_TENURE_MONTHS":        12,
	"MAX_TENURE_MONTHS":        360,
	"DUE_DAY_OF_MONTH":         1,
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	for key, value := range map[string]string{
		"SERVER_READ_TIMEOUT":     c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    c.Server.WriteTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": c.Server.ShutdownTimeout,
		"REDIS_CACHE_TTL":         c.Redis.CacheTTL,
		"KAFKA_WRITE_TIMEOUT":     c.Kafka.WriteTimeout,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	if _, err := cron.ParseStandard(c.Scheduler.OverdueSpec); err != nil {
		return fmt.Errorf("SCHEDULER_OVERDUE_SPEC must be a valid cron spec: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	if c.Business.MinTenureMonths <= 0 {
		return fmt.Errorf("MIN_TENURE_MONTHS must be greater than 0")
	}

	if c.Business.MaxTenureMonths < c.Business.MinTenureMonths {
		return fmt.Errorf("MAX_TENURE_MONTHS must not be lower than MIN_TENURE_MONTHS")
	}

	// due dates are normalized to a day every month has
	if c.Business.DueDayOfMonth < 1 || c.Business.DueDayOfMonth > 28 {
		return fmt.Errorf("DUE_DAY_OF_MONTH must be between 1 and 28")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// RedisAddress returns host:port, or "" when the cache is disabled
func (c *Config) RedisAddress() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// KafkaBrokers returns the configured brokers, nil when the audit stream is disabled
func (c *Config) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.Kafka.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *Config) GetReadTimeout() time.Duration     { return mustDuration(c.Server.ReadTimeout) }
func (c *Config) GetWriteTimeout() time.Duration    { return mustDuration(c.Server.WriteTimeout) }
func (c *Config) GetShutdownTimeout() time.Duration { return mustDuration(c.Server.ShutdownTimeout) }
func (c *Config) GetCacheTTL() time.Duration        { return mustDuration(c.Redis.CacheTTL) }
func (c *Config) GetKafkaWriteTimeout() time.Duration {
	return mustDuration(c.Kafka.WriteTimeout)
}

// GetSchedulerLocation returns the timezone the cron jobs run in
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// durations are checked by Validate
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
