package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile - looked up in the working directory and in XDG config dirs.
	DefaultConfigFile = "config.yaml"
	appDir            = "u2dumpsync"
	envPrefix         = "U2DS"
)

// Load - read .env, the config file and U2DS_* environment variables on top of defaults.
// Empty path means "search the default locations"; no file found there is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = FindConfigFile()
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if explicit && os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}

			return nil, fmt.Errorf("stat config: %w", err)
		}

		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile - config.yaml in the working directory, then $XDG_CONFIG_HOME/u2dumpsync
// and the XDG config dirs. Empty string when nothing exists.
func FindConfigFile() string {
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}

	path, err := xdg.SearchConfigFile(filepath.Join(appDir, DefaultConfigFile))
	if err != nil {
		return ""
	}

	return path
}

// DefaultConfigPath - where init writes a new config when no path is given.
func DefaultConfigPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appDir, DefaultConfigFile))
}

// WriteDefault - save default settings as YAML, never overwrites an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// setDefaults - register every key so that AutomaticEnv can override nested values.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("registry.url", d.Registry.URL)
	v.SetDefault("registry.timeout", d.Registry.Timeout)
	v.SetDefault("registry.request_file", d.Registry.RequestFile)
	v.SetDefault("registry.signature_file", d.Registry.SignatureFile)
	v.SetDefault("registry.format_version", d.Registry.FormatVersion)

	v.SetDefault("dump.normal", d.Dump.Normal)
	v.SetDefault("dump.urgent", d.Dump.Urgent)
	v.SetDefault("dump.poll_interval", d.Dump.PollInterval)
	v.SetDefault("dump.poll_timeout", d.Dump.PollTimeout)
	v.SetDefault("dump.poll_retries", d.Dump.PollRetries)
	v.SetDefault("dump.cache_dir", d.Dump.CacheDir)

	v.SetDefault("sync.interval", d.Sync.Interval)

	v.SetDefault("database.type", d.Database.Type)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.sslmode", d.Database.SSLMode)

	v.SetDefault("resolver.enabled", d.Resolver.Enabled)
	v.SetDefault("resolver.nameservers", d.Resolver.Nameservers)
	v.SetDefault("resolver.concurrency", d.Resolver.Concurrency)
	v.SetDefault("resolver.timeout", d.Resolver.Timeout)

	v.SetDefault("check.listen", d.Check.Listen)
	v.SetDefault("http.listen", d.HTTP.Listen)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.lock_key", d.Redis.LockKey)
	v.SetDefault("redis.lock_ttl", d.Redis.LockTTL)
}
