package config

import "errors"

// Validation errors.
var (
	ErrConfigNotFound      = errors.New("configuration file not found")
	ErrNoRegistryURL       = errors.New("registry url is empty")
	ErrInvalidTimeout      = errors.New("invalid registry timeout: must be positive")
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")
	ErrInvalidPollTimeout  = errors.New("invalid poll timeout: must not be less than poll interval")
	ErrInvalidPollRetries  = errors.New("invalid poll retries: must be non-negative")
	ErrInvalidSyncInterval = errors.New("invalid sync interval: must be positive")
	ErrUnknownDatabase     = errors.New("unknown database type")
	ErrNoNameservers       = errors.New("resolver is enabled without nameservers")
	ErrInvalidConcurrency  = errors.New("invalid resolver concurrency: must be positive")
	ErrInvalidLockTTL      = errors.New("invalid redis lock ttl: must be positive and not less than poll timeout")
)
