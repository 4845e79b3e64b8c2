// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/layer-3/talkie/internal/eth"
)

const envPrefix = "TALKIE_"

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8002"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	// PEM encoded P-256 key; an ephemeral key is generated when empty
	SigningKeyFile string        `env:"SIGNING_KEY_FILE"`
	CredentialTTL  time.Duration `env:"CREDENTIAL_TTL" envDefault:"24h"`

	MaxAudioDuration time.Duration `env:"MAX_AUDIO_DURATION" envDefault:"30s"`
	MaxAudioBytes    int           `env:"MAX_AUDIO_BYTES" envDefault:"4194304"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	BadgerPath  string `env:"BADGER_PATH"`

	RPCURL          string        `env:"RPC_URL"`
	NFTContract     string        `env:"NFT_CONTRACT"`
	OracleTimeout   time.Duration `env:"ORACLE_TIMEOUT" envDefault:"10s"`
	OracleMaxTokens int           `env:"ORACLE_MAX_TOKENS" envDefault:"16"`
	CollectionSize  int           `env:"COLLECTION_SIZE" envDefault:"5000"`

	ReplayProtection bool `env:"REPLAY_PROTECTION" envDefault:"true"`
	EventsEnabled    bool `env:"EVENTS_ENABLED" envDefault:"false"`

	PingInterval   time.Duration `env:"PING_INTERVAL" envDefault:"25s"`
	PongWait       time.Duration `env:"PONG_WAIT" envDefault:"60s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	AllowAnyOrigin bool          `env:"ALLOW_ANY_ORIGIN" envDefault:"true"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"talkie"`
}

// Load reads a .env file when present, then the TALKIE_ environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment without touching .env files
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UsesDevOracle reports whether no ownership contract is configured
func (c Config) UsesDevOracle() bool {
	return eth.IsZeroAddress(c.NFTContract)
}

func (c Config) Validate() error {
	var errs []error

	positive := map[string]time.Duration{
		"CREDENTIAL_TTL":     c.CredentialTTL,
		"MAX_AUDIO_DURATION": c.MaxAudioDuration,
		"ORACLE_TIMEOUT":     c.OracleTimeout,
		"PING_INTERVAL":      c.PingInterval,
		"PONG_WAIT":          c.PongWait,
		"WRITE_TIMEOUT":      c.WriteTimeout,
	}
	for key, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s%s must be positive", envPrefix, key))
		}
	}
	if c.PingInterval >= c.PongWait {
		errs = append(errs, fmt.Errorf("%sPING_INTERVAL must be shorter than %sPONG_WAIT", envPrefix, envPrefix))
	}
	if c.MaxAudioBytes <= 0 {
		errs = append(errs, fmt.Errorf("%sMAX_AUDIO_BYTES must be positive", envPrefix))
	}
	if c.OracleMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("%sORACLE_MAX_TOKENS must be positive", envPrefix))
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%sREDIS_URL is required for the redis store", envPrefix))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("%sDATABASE_URL is required for the postgres store", envPrefix))
		}
	case StoreBadger:
		if c.BadgerPath == "" {
			errs = append(errs, fmt.Errorf("%sBADGER_PATH is required for the badger store", envPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown %sSTORE_DRIVER %q", envPrefix, c.StoreDriver))
	}

	if c.EventsEnabled && c.RedisURL == "" {
		errs = append(errs, fmt.Errorf("%sREDIS_URL is required when events are enabled", envPrefix))
	}
	if !c.UsesDevOracle() && c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("%sRPC_URL is required when %sNFT_CONTRACT is set", envPrefix, envPrefix))
	}

	return errors.Join(errs...)
}
