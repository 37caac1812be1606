package cache

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-jastip/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Driver             string
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
	RedisURL           string

	// DefaultTTL applies to Set calls that pass a zero ttl.
	DefaultTTL time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.DefaultTTL = DefaultTTL
	return cfg
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal(nil).Validate()
}

// NewStore constructs the backend selected by cfg.Driver.
func NewStore(cfg Config, logger *slog.Logger) (Store, error) {
	internal := cfg.toInternal(logger)
	if internal.Driver == cacheinfra.DriverRedis {
		store, err := cacheinfra.NewRedisStore(internal)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := cacheinfra.NewMemoryStore(internal)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (c Config) toInternal(logger *slog.Logger) cacheinfra.Config {
	driver := c.Driver
	if driver == "" {
		driver = cacheinfra.DriverMemory
	}

	return cacheinfra.Config{
		Driver:             driver,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		RedisURL:           c.RedisURL,
		Logger:             logger,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Driver:             cfg.Driver,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		RedisURL:           cfg.RedisURL,
	}
}
