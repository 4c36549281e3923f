// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	Storage      StorageConfig      `koanf:"storage"`
	Seal         SealConfig         `koanf:"seal"`
	Session      SessionConfig      `koanf:"session"`
	Registration RegistrationConfig `koanf:"registration"`
	Bootstrap    BootstrapConfig    `koanf:"bootstrap"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	Migrate         bool          `koanf:"migrate"`
}

type RedisConfig struct {
	URL             string        `koanf:"url"`
	PoolSize        int           `koanf:"pool_size"`
	MinIdleConns    int           `koanf:"min_idle_conns"`
	PoolTimeout     time.Duration `koanf:"pool_timeout"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// StorageConfig selects where the sealed session blob lives between runs.
type StorageConfig struct {
	Driver string        `koanf:"driver"`
	Dir    string        `koanf:"dir"`
	Key    string        `koanf:"key"`
	TTL    time.Duration `koanf:"ttl"`
}

type SealConfig struct {
	PrivateKeyPath string        `koanf:"private_key_path"`
	PublicKeyPath  string        `koanf:"public_key_path"`
	Issuer         string        `koanf:"issuer"`
	Audience       string        `koanf:"audience"`
	MaxAge         time.Duration `koanf:"max_age"`
}

type SessionConfig struct {
	StoreTimeout time.Duration `koanf:"store_timeout"`
}

// RegistrationConfig holds credit limits in whole rubles.
type RegistrationConfig struct {
	CreditLimitIndividual int64 `koanf:"credit_limit_individual"`
	CreditLimitLegal      int64 `koanf:"credit_limit_legal"`
}

// BootstrapConfig seeds the first admin account on an empty store.
// Leaving AdminEmail empty disables seeding.
type BootstrapConfig struct {
	AdminEmail    string `koanf:"admin_email"`
	AdminPhone    string `koanf:"admin_phone"`
	AdminPassword string `koanf:"admin_password"`
	AdminName     string `koanf:"admin_name"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

const (
	StorageDriverFile   = "file"
	StorageDriverRedis  = "redis"
	StorageDriverMemory = "memory"
)

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "NEXX Storefront",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "127.0.0.1",
		"server.port":             8765,
		"server.read_timeout":     "15s",
		"server.write_timeout":    "15s",
		"server.idle_timeout":     "60s",
		"server.shutdown_timeout": "10s",

		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.connect_timeout":    "5s",
		"database.migrate":            true,

		"redis.pool_size":          10,
		"redis.min_idle_conns":     2,
		"redis.pool_timeout":       "10s",
		"redis.conn_max_idle_time": "5m",
		"redis.connect_timeout":    "5s",

		"storage.driver": StorageDriverFile,
		"storage.dir":    ".storefront",
		"storage.key":    "nexxCurrentUser",
		"storage.ttl":    "0s",

		"seal.private_key_path": "keys/session.pem",
		"seal.public_key_path":  "keys/session.pub.pem",
		"seal.issuer":           "nexx-storefront",
		"seal.audience":         "nexx-storefront-session",
		"seal.max_age":          "720h",

		"session.store_timeout": "5s",

		"registration.credit_limit_individual": 10000,
		"registration.credit_limit_legal":      100000,

		"bootstrap.admin_name": "Администратор Системы",

		"rate_limit.requests": 10,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    5,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "storefront",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_MIGRATE":            "database.migrate",
	"DATABASE_CONNECT_TIMEOUT":    "database.connect_timeout",
	"REDIS_URL":                   "redis.url",
	"REDIS_CONNECT_TIMEOUT":       "redis.connect_timeout",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"STORAGE_DRIVER":              "storage.driver",
	"STORAGE_DIR":                 "storage.dir",
	"STORAGE_KEY":                 "storage.key",
	"STORAGE_TTL":                 "storage.ttl",
	"SEAL_PRIVATE_KEY_PATH":       "seal.private_key_path",
	"SEAL_PUBLIC_KEY_PATH":        "seal.public_key_path",
	"SEAL_ISSUER":                 "seal.issuer",
	"SEAL_AUDIENCE":               "seal.audience",
	"SEAL_MAX_AGE":                "seal.max_age",
	"SESSION_STORE_TIMEOUT":       "session.store_timeout",
	"CREDIT_LIMIT_INDIVIDUAL":     "registration.credit_limit_individual",
	"CREDIT_LIMIT_LEGAL":          "registration.credit_limit_legal",
	"BOOTSTRAP_ADMIN_EMAIL":       "bootstrap.admin_email",
	"BOOTSTRAP_ADMIN_PHONE":       "bootstrap.admin_phone",
	"BOOTSTRAP_ADMIN_PASSWORD":    "bootstrap.admin_password",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Storage.Driver {
	case StorageDriverFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("STORAGE_DIR is required for the file driver")
		}
	case StorageDriverRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key must not be empty")
	}

	if c.Seal.PrivateKeyPath == "" {
		return fmt.Errorf("SEAL_PRIVATE_KEY_PATH is required")
	}

	if c.Session.StoreTimeout <= 0 {
		return fmt.Errorf("session.store_timeout must be positive")
	}

	if c.Registration.CreditLimitIndividual < 0 ||
		c.Registration.CreditLimitLegal < 0 {
		return fmt.Errorf("registration credit limits must not be negative")
	}

	if c.Bootstrap.AdminEmail != "" &&
		(c.Bootstrap.AdminPhone == "" || len(c.Bootstrap.AdminPassword) < 8) {
		return fmt.Errorf(
			"bootstrap admin needs a phone and a password of at least 8 characters",
		)
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.Storage.Driver == StorageDriverMemory {
			return fmt.Errorf("memory session storage is not allowed in production")
		}
	}

	if c.Database.ConnectTimeout <= 0 || c.Redis.ConnectTimeout <= 0 {
		return fmt.Errorf("database and redis connect timeouts must be positive")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// ServiceName is how this process introduces itself to Postgres, Redis and
// the trace collector.
func (c *Config) ServiceName() string {
	if c.Otel.ServiceName != "" {
		return c.Otel.ServiceName
	}
	return "storefront"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
