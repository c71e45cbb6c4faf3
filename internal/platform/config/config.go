package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR"             envDefault:":8080"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`

	Session   Session     `envPrefix:"SESSION_"`
	Yield     Yield       `envPrefix:"YIELD_"`
	Postgres  Postgres    `envPrefix:"DATABASE_"`
	Redis     RedisConfig `envPrefix:"REDIS_"`
	Kafka     Kafka       `envPrefix:"KAFKA_"`
	Tracing   Tracing     `envPrefix:"OTEL_"`
	RateLimit RateLimit   `envPrefix:"RATE_LIMIT_"`
}

// Session configures verification of identity-layer session tokens.
type Session struct {
	SigningKey string `env:"SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string `env:"ISSUER"      envDefault:"escrowd-identity"`
	Audience   string `env:"AUDIENCE"    envDefault:"escrowd"`
}

// Yield configures the accrual engine.
type Yield struct {
	APYPercent string `env:"APY_PERCENT" envDefault:"7.2"`
}

// Postgres selects the durable store. An empty URL keeps everything in memory.
type Postgres struct {
	URL             string        `env:"URL"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"20"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	// LockTimeout bounds a locked section when the request set no deadline.
	LockTimeout time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`
}

// RedisConfig fronts compliance reads with a cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT"  envDefault:"3s"`
	CacheTTL     time.Duration `env:"CACHE_TTL"      envDefault:"30s"`
}

// Kafka configures the audit outbox relay. No brokers disables the relay.
type Kafka struct {
	Brokers       []string      `env:"BROKERS"        envSeparator:","`
	AuditTopic    string        `env:"AUDIT_TOPIC"    envDefault:"escrowd.audit"`
	RelayInterval time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`
	Partitions    int32         `env:"PARTITIONS"     envDefault:"3"`
	Replication   int16         `env:"REPLICATION"    envDefault:"1"`
}

// Tracing exports ledger spans over OTLP/HTTP. No endpoint keeps the global
// no-op tracer.
type Tracing struct {
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"escrowd"`
}

// RateLimit bounds requests per caller on the caller routes. Reads and writes
// have separate budgets over the same sliding window.
type RateLimit struct {
	Enabled         bool          `env:"ENABLED"         envDefault:"true"`
	ReadsPerWindow  int           `env:"READS_PER_WINDOW"  envDefault:"300"`
	WritesPerWindow int           `env:"WRITES_PER_WINDOW" envDefault:"60"`
	Window          time.Duration `env:"WINDOW"          envDefault:"1m"`
}

// EnvPrefix namespaces every variable, e.g. ESCROWD_ADDR.
const EnvPrefix = "ESCROWD_"

// FromEnv builds the Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	return parse(env.Options{Prefix: EnvPrefix})
}

func parse(opts env.Options) (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
