package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/funing-shop/internal/storage/postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (SHOP_API_KEY_PEPPER)" flag:"api-key-pepper"`
	JWT          JWTConfig
	Tx           TxConfig
	Graceful     GracefulConfig
}

// JWTConfig controls login session tokens.
type JWTConfig struct {
	Secret string        `usage:"HMAC secret for session tokens (SHOP_JWT_SECRET)" flag:"jwt-secret"`
	TTL    time.Duration `default:"24h" usage:"Session token lifetime" flag:"jwt-ttl"`
}

// TxConfig controls retries of serializable transactions.
type TxConfig struct {
	MaxRetries int           `default:"3" usage:"Retries after a serialization failure" flag:"tx-max-retries"`
	Backoff    time.Duration `default:"50ms" usage:"Initial retry backoff" flag:"tx-backoff"`
}

// Options converts the config to transactor options.
func (c TxConfig) Options() postgres.TxOptions {
	opts := postgres.DefaultTxOptions()
	opts.MaxRetries = c.MaxRetries
	if c.Backoff > 0 {
		opts.Backoff = c.Backoff
	}
	return opts
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads a local .env file if present, then configuration from
// environment variables, flags and YAML config files.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	case c.JWT.Secret == "":
		return errors.New("JWT secret is required: set SHOP_JWT_SECRET")
	case c.JWT.TTL <= 0:
		return errors.New("JWT TTL must be positive")
	case c.Tx.MaxRetries < 0:
		return errors.New("transaction retries must not be negative")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
