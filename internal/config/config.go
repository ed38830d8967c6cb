// Package config loads runtime configuration from the process environment
// (optionally seeded from a local .env file), following the flat
// struct-tag convention the reference broker's dependency set
// (caarlos0/env + godotenv) is built for.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every environment knob named in the spec plus the
// supplemental sizing knobs the component design requires but the
// "recognized names" table doesn't enumerate.
type Config struct {
	Port            int    `env:"PORT" envDefault:"8080"`
	APIKey          string `env:"API_KEY"`
	RequireAPIKey   bool   `env:"REQUIRE_API_KEY" envDefault:"false"`
	CORSOrigin      string `env:"CORS_ORIGIN" envDefault:"*"`
	EnableRateLimit bool   `env:"ENABLE_RATE_LIMIT" envDefault:"true"`
	TrustProxy      bool   `env:"TRUST_PROXY" envDefault:"false"`
	Production      bool   `env:"PRODUCTION" envDefault:"false"`

	MaxChannels int           `env:"MAX_CHANNELS" envDefault:"1000"`
	ChannelTTL  time.Duration `env:"CHANNEL_TTL" envDefault:"24h"`

	MaxQueueSize int `env:"MAX_QUEUE_SIZE" envDefault:"1000"`

	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"1000"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Supplemental: named by §4.8/§4.7/§5 but not in the §6 "recognized
	// names" table. MaxConnections defaults to 0, which signals
	// DefaultMaxConnections should compute a cgroup-aware value.
	MaxConnections       int           `env:"MAX_CONNECTIONS" envDefault:"0"`
	MaxConnectionsPerIP  int           `env:"MAX_CONNECTIONS_PER_IP" envDefault:"100"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"15s"`
	StaleTimeout         time.Duration `env:"STALE_TIMEOUT" envDefault:"45s"`
	AdmissionBurst       int           `env:"ADMISSION_BURST" envDefault:"50"`
	AdmissionBurstWindow time.Duration `env:"ADMISSION_BURST_WINDOW" envDefault:"1s"`

	MaxPayloadSize   int64 `env:"MAX_PAYLOAD_SIZE" envDefault:"1048576"`
	MaxBatchSize     int   `env:"MAX_BATCH_SIZE" envDefault:"1000"`
	MaxSingleLogSize int   `env:"MAX_SINGLE_LOG_SIZE" envDefault:"65536"`

	IDPoolTarget    int `env:"ID_POOL_TARGET" envDefault:"1000"`
	IDPoolThreshold int `env:"ID_POOL_THRESHOLD" envDefault:"200"`
	IDPoolBatch     int `env:"ID_POOL_BATCH" envDefault:"500"`

	NATSURL string `env:"NATS_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9095"`
}

// Load reads a local .env (if present, without overriding anything
// already set in the process environment) and then parses Config from
// the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultMaxConnections()
	}

	return cfg, nil
}
