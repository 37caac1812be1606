// Package config loads the server configuration from the environment.
//
// Values come from process environment variables, optionally seeded from
// .env files. Unset variables fall back to development defaults. The
// loaded configuration is validated before use.
package config

import (
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/internal/storage"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the full server configuration.
type Config struct {
	Env      string
	HTTPAddr string

	DBDriver string
	DBDSN    string

	Cache cache.Config

	JWTSecret    string
	JWTExpiresIn time.Duration

	CORSOrigins []string

	LogLevel  string
	LogFormat string
}

// Development reports whether the server runs in development mode.
func (c Config) Development() bool {
	return c.Env == EnvDevelopment
}

// LookupFunc reads one variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the given .env files (".env" when none is given) into the
// process environment and builds the configuration from it. Missing .env
// files are ignored, variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrap(err, errors.CategoryBadInput, "failed to read "+f).
				WithTextCode("CONFIG_INVALID")
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds and validates the configuration from lookup.
func FromEnv(lookup LookupFunc) (Config, error) {
	r := reader{lookup: lookup}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Driver = r.str("CACHE_DRIVER", cacheCfg.Driver)
	cacheCfg.RedisURL = r.str("REDIS_URL", "")
	cacheCfg.DefaultTTL = r.duration("CACHE_DEFAULT_TTL", cacheCfg.DefaultTTL)

	cfg := Config{
		Env:          r.str("APP_ENV", EnvDevelopment),
		HTTPAddr:     r.str("HTTP_ADDR", ":8080"),
		DBDriver:     r.str("DB_DRIVER", storage.DriverSQLite),
		DBDSN:        r.str("DB_DSN", "file:jastip.db?cache=shared&_foreign_keys=1"),
		Cache:        cacheCfg,
		JWTSecret:    r.str("JWT_SECRET", ""),
		JWTExpiresIn: r.duration("JWT_EXPIRES_IN", 24*time.Hour),
		CORSOrigins:  r.list("CORS_ORIGINS"),
		LogLevel:     strings.ToLower(r.str("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(r.str("LOG_FORMAT", "json")),
	}

	if len(r.errs) > 0 {
		return Config{}, errors.NewValidation("invalid configuration", r.errs...).
			WithTextCode("CONFIG_INVALID")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration as a whole.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Env, validation.Required, validation.In(EnvDevelopment, EnvProduction, EnvTest)),
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.DBDriver, validation.Required, validation.In(storage.DriverSQLite, storage.DriverPostgres)),
		validation.Field(&c.DBDSN, validation.Required),
		validation.Field(&c.JWTSecret,
			validation.Required,
			validation.When(c.Env == EnvProduction, validation.Length(32, 0)),
		),
		validation.Field(&c.JWTExpiresIn, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
	)
	if err != nil {
		return errors.FromOzzoValidation(err, "invalid configuration").WithTextCode("CONFIG_INVALID")
	}

	if err := c.Cache.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid cache configuration").
			WithTextCode("CONFIG_INVALID")
	}
	return nil
}

// reader collects parse failures so every bad variable is reported at once.
type reader struct {
	lookup LookupFunc
	errs   []errors.FieldError
}

func (r *reader) str(key, fallback string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, errors.FieldError{Field: key, Message: "must be a duration such as 10m or 24h", Value: v})
		return fallback
	}
	return d
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
