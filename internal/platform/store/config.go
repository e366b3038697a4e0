package store

import (
	"time"

	"ottscout/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// ConnectRetries bounds the boot ping loop, PingTimeout bounds each ping
	ConnectRetries int
	PingTimeout    time.Duration
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	Version string
}

// FromConfig reads backend settings; a backend is enabled when its URL is set
func FromConfig(cfg config.Conf, app string) Config {
	pgURL := cfg.MayString("PG_URL", "")
	chURL := cfg.MayString("CH_URL", "")
	return Config{
		AppName: app,
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(cfg.MayInt("PG_MAX_CONNS", 4)),
			LogSQL:         cfg.MayBool("PG_LOG_SQL", false),
			SlowQueryMs:    cfg.MayInt("PG_SLOW_MS", 200),
			ConnectRetries: cfg.MayInt("PG_CONNECT_RETRIES", 6),
			PingTimeout:    cfg.MayDuration("PG_PING_TIMEOUT", 5*time.Second),
		},
		CH: CHConfig{
			Enabled: chURL != "",
			URL:     chURL,
		},
	}
}
