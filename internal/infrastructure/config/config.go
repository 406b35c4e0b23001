package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Upstream UpstreamConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

type UpstreamConfig struct {
	BaseURL string        `env:"UPSTREAM_BASE_URL, default=http://localhost:9000/api"`
	Timeout time.Duration `env:"UPSTREAM_TIMEOUT,  default=12s"`
}

type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR,      default=localhost:6379"`
	DB        int    `env:"REDIS_DB,        default=0"`
	Namespace string `env:"REDIS_NAMESPACE, default=posedge"`
}

type AuthConfig struct {
	// RefreshThreshold is how long before expiry the background refresh runs
	// and below which EnsureFresh refreshes inline.
	RefreshThreshold time.Duration `env:"AUTH_REFRESH_THRESHOLD, default=5m"`
	// MaxAuthErrors is the 3-strikes breaker threshold.
	MaxAuthErrors int64 `env:"AUTH_MAX_ERRORS, default=3"`
	// SignatureDebounce suppresses repeated signature-failure recovery per
	// endpoint within this window.
	SignatureDebounce time.Duration `env:"AUTH_SIGNATURE_DEBOUNCE, default=30s"`
	// ProbeInterval is the period of the background connectivity check.
	ProbeInterval time.Duration `env:"CONNECTIVITY_PROBE_INTERVAL, default=15s"`
	// RecoverCooldown is the minimum wait before an offline→online flip.
	RecoverCooldown time.Duration `env:"CONNECTIVITY_RECOVER_COOLDOWN, default=30s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
