package cacheinfra

import (
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/viccon/sturdyc"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config holds the configuration for the cache backends.
type Config struct {
	// Driver selects the backend: "memory" (sturdyc) or "redis".
	Driver string

	// Capacity defines the maximum number of entries the memory backend can store.
	Capacity int

	// NumShards determines the number of memory cache shards for concurrent access.
	// Default: 256
	NumShards int

	// TTL is the longest lifetime an entry can have in the memory backend.
	// Per key TTLs larger than this are capped.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the memory cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the memory cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	// RedisURL is a redis:// connection string, required for the redis driver.
	RedisURL string

	// Logger receives backend warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Driver:             DriverMemory,
		Capacity:           10000,
		NumShards:          256,
		TTL:                time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}
}

// ToSturdycOptions converts the Config to sturdyc options.
// Capacity, NumShards, TTL, and EvictionPercentage go straight to sturdyc.New.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	if c.Logger != nil {
		options = append(options, sturdyc.WithLog(c.Logger))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverMemory, DriverRedis)),
		validation.Field(&c.Capacity, validation.When(c.Driver == DriverMemory, validation.Required, validation.Min(1))),
		validation.Field(&c.NumShards, validation.When(c.Driver == DriverMemory, validation.Required, validation.Min(1))),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.EvictionPercentage, validation.When(c.Driver == DriverMemory, validation.Required, validation.Min(1), validation.Max(100))),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.RedisURL, validation.When(c.Driver == DriverRedis, validation.Required)),
	)
	if err != nil {
		return errors.FromOzzoValidation(err, "invalid cache configuration").
			WithCode(errors.CodeBadRequest).
			WithTextCode("CACHE_CONFIG_INVALID")
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
