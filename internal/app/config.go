package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/price"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string        `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	Title         string        `default:"TokoKu" usage:"Shop name shown in the page header"`
	ToastLifetime time.Duration `default:"3s" usage:"How long a cart notification stays visible" flag:"toast-lifetime"`
	Catalog       CatalogConfig
	Price         PriceConfig
	Session       SessionConfig
	Graceful      GracefulConfig
}

// CatalogConfig points at the remote product catalog.
type CatalogConfig struct {
	URL     string        `default:"https://fakestoreapi.com/products" usage:"Product catalog endpoint"`
	Timeout time.Duration `default:"0s" usage:"Catalog request timeout, 0 disables it"`
}

// PriceConfig controls how catalog prices are displayed.
type PriceConfig struct {
	Rate   string `default:"15000" usage:"Exchange rate applied to catalog prices"`
	Symbol string `default:"Rp" usage:"Currency symbol"`
	Locale string `default:"id-ID" usage:"Locale used for digit grouping"`
}

// SessionConfig controls page session retention.
type SessionConfig struct {
	IdleTTL     time.Duration `default:"30m" usage:"Drop page sessions idle for this long" flag:"session-idle-ttl"`
	MaxSessions int           `default:"0" usage:"Report not ready at this many live sessions, 0 disables" flag:"max-sessions"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "STOREFRONT"
	base.Files = []string{"config.yaml", "/etc/storefront/config.yaml"}
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	loader := aconfig.LoaderFor(&cfg, base)
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if _, err := cfg.Prices(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the PORT variable set by hosting platforms onto
// the listen address unless one was configured explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Prices builds the price converter described by the config.
func (c *Config) Prices() (*price.Converter, error) {
	var rate decimal.Decimal
	if c.Price.Rate != "" {
		r, err := decimal.NewFromString(c.Price.Rate)
		if err != nil {
			return nil, errors.Wrapf(err, "parse exchange rate %q", c.Price.Rate)
		}
		rate = r
	}
	conv, err := price.NewConverter(price.Config{
		Rate:   rate,
		Symbol: c.Price.Symbol,
		Locale: c.Price.Locale,
	})
	if err != nil {
		return nil, errors.Wrap(err, "price config")
	}
	return conv, nil
}

func (c *Config) catalogConfig() catalog.Config {
	return catalog.Config{
		Endpoint: c.Catalog.URL,
		Timeout:  c.Catalog.Timeout,
	}
}
