package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls the relying-party service. Everything is loaded from the
// environment with sane localhost defaults for development.
type Config struct {
	// Relying-party identity presented to authenticators.
	RPID          string   `env:"PASSKEYD_RP_ID"           envDefault:"localhost"`
	RPDisplayName string   `env:"PASSKEYD_RP_DISPLAY_NAME" envDefault:"passkeyd"`
	RPOrigins     []string `env:"PASSKEYD_RP_ORIGINS"      envSeparator:"," envDefault:"http://localhost:8080"`

	// Ceremony and session lifetimes.
	ChallengeTTL  time.Duration `env:"PASSKEYD_CHALLENGE_TTL"   envDefault:"5m"`
	LoginTokenTTL time.Duration `env:"PASSKEYD_LOGIN_TOKEN_TTL" envDefault:"2m"`
	SessionTTL    time.Duration `env:"PASSKEYD_SESSION_TTL"     envDefault:"1h"`
	Issuer        string        `env:"PASSKEYD_ISSUER"          envDefault:"passkeyd"`

	// Durable fixed-window rate limiting.
	RateWindow   time.Duration `env:"PASSKEYD_RATE_WINDOW"   envDefault:"1m"`
	IPCeiling    int64         `env:"PASSKEYD_IP_CEILING"    envDefault:"30"`
	EmailCeiling int64         `env:"PASSKEYD_EMAIL_CEILING" envDefault:"10"`

	DatabaseFile string `env:"PASSKEYD_DATABASE_FILE" envDefault:"passkeyd.db"`

	Env                  string        `env:"ENV"                   envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT"            envDefault:"json"`
	Port                 int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"5m"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
