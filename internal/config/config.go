// Package config loads u2dumpsync settings from a YAML file, .env and the environment.
package config

import (
	"fmt"
	"time"
)

// Database kinds.
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

// Config - whole program settings.
type Config struct {
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Dump     DumpConfig     `mapstructure:"dump" yaml:"dump"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Check    CheckConfig    `mapstructure:"check" yaml:"check"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
}

// RegistryConfig - SOAP service and the signed request files.
type RegistryConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestFile   string        `mapstructure:"request_file" yaml:"request_file"`
	SignatureFile string        `mapstructure:"signature_file" yaml:"signature_file"`
	FormatVersion string        `mapstructure:"format_version" yaml:"format_version"`
}

// DumpConfig - which dump timestamps are watched and how the result is polled.
// Normal and Urgent both set (or both unset) means "watch both".
type DumpConfig struct {
	Normal       bool          `mapstructure:"normal" yaml:"normal"`
	Urgent       bool          `mapstructure:"urgent" yaml:"urgent"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	PollRetries  int           `mapstructure:"poll_retries" yaml:"poll_retries"`
	CacheDir     string        `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// SyncConfig - period between cycles in the run loop.
type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// DatabaseConfig - record store connection.
type DatabaseConfig struct {
	Type     string `mapstructure:"type" yaml:"type"`
	Path     string `mapstructure:"path" yaml:"path"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Name     string `mapstructure:"name" yaml:"name"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN - driver connection string for the configured database type.
func (d DatabaseConfig) DSN() string {
	if d.Type == DatabasePostgres {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}

	return fmt.Sprintf("file:%s?_fk=1&_busy_timeout=5000", d.Path)
}

// ResolverConfig - blocked domains resolver.
type ResolverConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Nameservers []string      `mapstructure:"nameservers" yaml:"nameservers"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CheckConfig - gRPC check service, empty Listen disables it.
type CheckConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// HTTPConfig - metrics and status listener, empty Listen disables it.
type HTTPConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// RedisConfig - cross-process cycle lock, empty URL means in-process lock.
type RedisConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	LockKey string        `mapstructure:"lock_key" yaml:"lock_key"`
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

// Default - settings used when nothing is configured.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Registry: RegistryConfig{
			URL:           "https://vigruzki.rkn.gov.ru/services/OperatorRequest/",
			Timeout:       5 * time.Minute,
			RequestFile:   "request.xml",
			SignatureFile: "request.xml.sign",
			FormatVersion: "2.4",
		},
		Dump: DumpConfig{
			Normal:       true,
			Urgent:       true,
			PollInterval: 60 * time.Second,
			PollTimeout:  30 * time.Minute,
			PollRetries:  3,
			CacheDir:     "res",
		},
		Sync: SyncConfig{
			Interval: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			Type:    DatabaseSQLite,
			Path:    "blacklist.db",
			Host:    "localhost",
			Port:    5432,
			Name:    "blacklist",
			User:    "blacklist",
			SSLMode: "disable",
		},
		Resolver: ResolverConfig{
			Enabled:     false,
			Nameservers: []string{"8.8.8.8:53", "1.1.1.1:53"},
			Concurrency: 32,
			Timeout:     2 * time.Second,
		},
		Redis: RedisConfig{
			LockKey: "u2dumpsync:cycle",
			LockTTL: 2 * time.Hour,
		},
	}
}

// Validate - check settings that would break a cycle later.
func (c *Config) Validate() error {
	if c.Registry.URL == "" {
		return ErrNoRegistryURL
	}

	if c.Registry.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Dump.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}

	if c.Dump.PollTimeout < c.Dump.PollInterval {
		return ErrInvalidPollTimeout
	}

	if c.Dump.PollRetries < 0 {
		return ErrInvalidPollRetries
	}

	if c.Sync.Interval <= 0 {
		return ErrInvalidSyncInterval
	}

	if c.Redis.URL != "" && (c.Redis.LockTTL <= 0 || c.Redis.LockTTL < c.Dump.PollTimeout) {
		return fmt.Errorf("%w: %s", ErrInvalidLockTTL, c.Redis.LockTTL)
	}

	switch c.Database.Type {
	case DatabaseSQLite, DatabasePostgres:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDatabase, c.Database.Type)
	}

	if c.Resolver.Enabled {
		if len(c.Resolver.Nameservers) == 0 {
			return ErrNoNameservers
		}

		if c.Resolver.Concurrency <= 0 {
			return ErrInvalidConcurrency
		}
	}

	return nil
}
