// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Integrity IntegrityConfig `mapstructure:"integrity"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port             int `mapstructure:"port"`
	ReadTimeout      int `mapstructure:"read_timeout"`      // seconds
	WriteTimeout     int `mapstructure:"write_timeout"`     // seconds
	DetectionTimeout int `mapstructure:"detection_timeout"` // seconds; detection is full-table scans
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IntegrityConfig holds the tunables of the detection and correction engines.
type IntegrityConfig struct {
	DetailLimit      int     `mapstructure:"detail_limit"`       // max detail rows per check
	MessageLimit     int     `mapstructure:"message_limit"`      // max human-readable messages per correction batch
	Tolerance        float64 `mapstructure:"tolerance"`          // rounding tolerance for computed-value checks
	ConfigTTLMinutes int     `mapstructure:"config_ttl_minutes"` // grade configuration cache TTL
	StaleImportHours int     `mapstructure:"stale_import_hours"` // imports stuck in processing/error beyond this are flagged
	CachePrefix      string  `mapstructure:"cache_prefix"`       // report-cache key prefix invalidated after corrections
}

func (i IntegrityConfig) ConfigTTL() time.Duration {
	return time.Duration(i.ConfigTTLMinutes) * time.Minute
}

func (i IntegrityConfig) StaleImportAge() time.Duration {
	return time.Duration(i.StaleImportHours) * time.Hour
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
