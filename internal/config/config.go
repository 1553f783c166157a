package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	EnvPrefix  = "NOVAC"
	EnvFileKey = "NOVAC_CONFIG_FILE"

	GatewayModeLive    = "live"
	GatewayModeSandbox = "sandbox"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTP      HTTP      `mapstructure:"http"`
	Site      Site      `mapstructure:"site"`
	Gateway   Gateway   `mapstructure:"gateway"`
	DB        DB        `mapstructure:"db"`
	Cache     Cache     `mapstructure:"cache"`
	Log       Log       `mapstructure:"log"`
	Auth      Auth      `mapstructure:"auth"`
	Reconcile Reconcile `mapstructure:"reconcile"`
	Paths     Paths     `mapstructure:"paths"`
}

type HTTP struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type Site struct {
	// URL is the public base of this service; callbacks and default
	// redirects are built from it.
	URL                  string   `mapstructure:"url"`
	AllowedRedirectHosts []string `mapstructure:"allowed_redirect_hosts"`
}

type Gateway struct {
	Mode      string        `mapstructure:"mode"`
	BaseURL   string        `mapstructure:"base_url"`
	PublicKey string        `mapstructure:"public_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Breaker   Breaker       `mapstructure:"breaker"`
}

type Breaker struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

type DB struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type Cache struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type Auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type Reconcile struct {
	CallbackCreatesMissing bool `mapstructure:"callback_creates_missing"`
}

type Paths struct {
	Journal    string `mapstructure:"journal"`
	Audit      string `mapstructure:"audit"`
	DeadLetter string `mapstructure:"dead_letter"`
}

var defaults = map[string]any{
	"http.addr":                          ":8080",
	"http.read_header_timeout":           5 * time.Second,
	"http.read_timeout":                  15 * time.Second,
	"http.write_timeout":                 45 * time.Second,
	"http.idle_timeout":                  60 * time.Second,
	"http.shutdown_timeout":              15 * time.Second,
	"site.url":                           "http://localhost:8080",
	"site.allowed_redirect_hosts":        []string{},
	"gateway.mode":                       GatewayModeLive,
	"gateway.base_url":                   "https://api.novacpayment.com/api/v1",
	"gateway.public_key":                 "",
	"gateway.secret_key":                 "",
	"gateway.timeout":                    30 * time.Second,
	"gateway.breaker.failure_threshold":  5,
	"gateway.breaker.success_threshold":  1,
	"gateway.breaker.open_timeout":       30 * time.Second,
	"db.driver":                          DriverMemory,
	"db.dsn":                             "",
	"db.max_open_conns":                  10,
	"db.max_idle_conns":                  5,
	"db.conn_max_lifetime":               30 * time.Minute,
	"cache.enabled":                      true,
	"cache.ttl":                          10 * time.Minute,
	"log.level":                          "info",
	"log.format":                         "json",
	"log.file":                           "",
	"auth.jwt_secret":                    "",
	"reconcile.callback_creates_missing": false,
	"paths.journal":                      "./out/journal.jsonl",
	"paths.audit":                        "./out/audit.jsonl",
	"paths.dead_letter":                  "./out/dlq.jsonl",
}

// Load reads an optional .env file, then NOVAC_* environment variables over
// an optional YAML file named by NOVAC_CONFIG_FILE.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML file. An empty path falls back to
// NOVAC_CONFIG_FILE.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()
	if path == "" {
		path = os.Getenv(EnvFileKey)
	}
	return load(path)
}

func load(file string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("read %s: %w", file, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Gateway.Mode = strings.ToLower(strings.TrimSpace(c.Gateway.Mode))
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	c.Site.URL = strings.TrimRight(strings.TrimSpace(c.Site.URL), "/")

	hosts := c.Site.AllowedRedirectHosts[:0]
	for _, h := range c.Site.AllowedRedirectHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	c.Site.AllowedRedirectHosts = hosts
}

func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Site.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("site.url must be an absolute http(s) URL, got %q", c.Site.URL))
	}
	switch c.Gateway.Mode {
	case GatewayModeSandbox:
	case GatewayModeLive:
		if c.Gateway.SecretKey == "" {
			errs = append(errs, errors.New("gateway.secret_key is required in live mode"))
		}
		if c.Gateway.PublicKey == "" {
			errs = append(errs, errors.New("gateway.public_key is required in live mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("gateway.mode must be %s or %s, got %q", GatewayModeLive, GatewayModeSandbox, c.Gateway.Mode))
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("gateway.timeout must be positive"))
	}
	switch c.DB.Driver {
	case DriverMemory:
	case DriverMySQL, DriverPostgres:
		if c.DB.DSN == "" {
			errs = append(errs, fmt.Errorf("db.dsn is required for driver %s", c.DB.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("db.driver must be one of mysql, postgres, memory, got %q", c.DB.Driver))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive when the cache is enabled"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Gateway.SecretKey != "" {
		c.Gateway.SecretKey = "***"
	}
	if c.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = "***"
	}
	if c.DB.DSN != "" {
		c.DB.DSN = "***"
	}
	return c
}
