package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Environment names. Production refuses the development-token fast path.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// minSigningKeyBytes is the floor for the HMAC signing key. A shorter key is
// a deployment mistake, rejected at startup rather than at first use.
const minSigningKeyBytes = 32

// Config is the full process configuration, loaded once at startup.
type Config struct {
	Addr        string `env:"AGENTGATE_ADDR,default=:8080"`
	Environment string `env:"ENVIRONMENT,default=development"`

	// JWTSigningKey signs access tokens. Must be at least 32 bytes.
	JWTSigningKey string `env:"JWT_SIGNING_KEY"`
	Issuer        string `env:"JWT_ISSUER,default=elizaos-platform"`
	Audience      string `env:"JWT_AUDIENCE,default=elizaos-users"`

	// AllowDevTokens enables self-contained tokens that skip the session
	// store lookup. Only honored in development.
	AllowDevTokens bool `env:"ALLOW_DEV_TOKENS,default=false"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,default=24h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL,default=168h"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=60s"`

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// PostgresConfig configures the pgx pool. Empty URL disables postgres-backed
// stores and the server falls back to in-memory stores.
type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`
}

// RedisConfig configures the shared redis client. Empty URL disables redis.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE,default=10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS,default=2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT,default=5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT,default=3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT,default=3s"`
}

// KafkaConfig configures the audit publisher. Empty brokers means audit
// events go to the in-memory sink only.
type KafkaConfig struct {
	Brokers    string `env:"KAFKA_BROKERS"`
	AuditTopic string `env:"KAFKA_AUDIT_TOPIC,default=agentgate.audit"`
}

// Load reads configuration from the environment and validates it. Loading
// fails fast on configuration errors so a misconfigured process never serves
// a request.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces startup invariants.
func (c *Config) Validate() error {
	if len(c.JWTSigningKey) < minSigningKeyBytes {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes, got %d", minSigningKeyBytes, len(c.JWTSigningKey))
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("unknown ENVIRONMENT %q", c.Environment)
	}
	if c.AllowDevTokens && c.Environment != EnvDevelopment {
		return fmt.Errorf("ALLOW_DEV_TOKENS is only permitted when ENVIRONMENT=development")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return fmt.Errorf("refresh token TTL must not be shorter than access token TTL")
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}
