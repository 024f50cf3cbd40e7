package shared

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	Storage   string `envconfig:"STORAGE" default:"mysql"`
	MySQLDSN  string `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/bookify?parseTime=true&charset=utf8mb4,utf8&loc=UTC"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
	RedisPass string `envconfig:"REDIS_PASSWORD"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"15m"`

	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"bookify_session"`

	HotelTZ string `envconfig:"HOTEL_TZ" default:"UTC"`

	// TrustedProxies lists proxy addresses or CIDRs whose forwarding
	// headers name the client. Empty means the peer address is the client.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	CompleterWorkers int `envconfig:"COMPLETER_WORKERS" default:"4"`
	CompleterBatch   int `envconfig:"COMPLETER_BATCH" default:"500"`

	loc     *time.Location
	proxies []netip.Prefix
}

// Proxies returns the parsed TRUSTED_PROXIES.
func (c Config) Proxies() []netip.Prefix { return c.proxies }

// Location is the hotel's time zone; calendar "today" is taken there.
func (c Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err == nil {
		log.Debug().Msg("loaded .env")
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMySQL, StorageMemory:
	default:
		return fmt.Errorf("config: STORAGE must be %q or %q, got %q", StorageMySQL, StorageMemory, c.Storage)
	}
	loc, err := time.LoadLocation(c.HotelTZ)
	if err != nil {
		return fmt.Errorf("config: HOTEL_TZ: %w", err)
	}
	c.loc = loc
	c.proxies = nil
	for _, raw := range c.TrustedProxies {
		p, err := parseProxy(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		c.proxies = append(c.proxies, p)
	}
	if c.CompleterWorkers < 1 {
		c.CompleterWorkers = 1
	}
	if c.SessionSecret == "" {
		log.Warn().Msg("SESSION_SECRET is empty")
	}
	return nil
}

// parseProxy accepts a CIDR or a single address.
func parseProxy(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		return p.Masked(), err
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(a, a.BitLen()), nil
}
