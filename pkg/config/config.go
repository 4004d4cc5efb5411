package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// LookupTimeout bounds the joined identity and content lookups of a
		// single authorization request.
		LookupTimeout time.Duration `yaml:"lookup_timeout"`
	} `yaml:"server"`

	Store struct {
		Driver   string `yaml:"driver"` // memory, redis, sqlite, postgres
		DSN      string `yaml:"dsn"`
		SeedFile string `yaml:"seed_file"`

		Redis struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size"`
		} `yaml:"redis"`

		Breaker struct {
			Enabled          bool          `yaml:"enabled"`
			FailureThreshold uint32        `yaml:"failure_threshold"`
			OpenTimeout      time.Duration `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"store"`

	Identity struct {
		Mode      string `yaml:"mode"` // jwt or oidc
		RoleClaim string `yaml:"role_claim"`

		JWT struct {
			Secret   string `yaml:"secret"`
			Issuer   string `yaml:"issuer"`
			Audience string `yaml:"audience"`
		} `yaml:"jwt"`

		OIDC struct {
			IssuerURL string `yaml:"issuer_url"`
			ClientID  string `yaml:"client_id"`
		} `yaml:"oidc"`
	} `yaml:"identity"`

	CDN struct {
		KeyName         string        `yaml:"key_name"`
		SecretKey       string        `yaml:"secret_key"` // base64
		CookieName      string        `yaml:"cookie_name"`
		CookieDomain    string        `yaml:"cookie_domain"`
		Secure          bool          `yaml:"secure"`
		BaseURL         string        `yaml:"base_url"`
		MaxUnboundedTTL time.Duration `yaml:"max_unbounded_ttl"`
	} `yaml:"cdn"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	if c.Server.LookupTimeout <= 0 {
		return fmt.Errorf("server.lookup_timeout must be > 0")
	}

	// Store
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.Redis.Address == "" {
			return fmt.Errorf("store.redis.address must not be empty when store.driver=redis")
		}
		if c.Store.Redis.PoolSize <= 0 {
			return fmt.Errorf("store.redis.pool_size must be > 0 when store.driver=redis")
		}
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must not be empty when store.driver=%s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, redis, sqlite, postgres (got %q)", c.Store.Driver)
	}
	if c.Store.Breaker.Enabled {
		if c.Store.Breaker.FailureThreshold == 0 {
			return fmt.Errorf("store.breaker.failure_threshold must be > 0 when breaker is enabled")
		}
		if c.Store.Breaker.OpenTimeout <= 0 {
			return fmt.Errorf("store.breaker.open_timeout must be > 0 when breaker is enabled")
		}
	}

	// Identity
	switch c.Identity.Mode {
	case "jwt":
		if c.Identity.JWT.Secret == "" {
			return fmt.Errorf("identity.jwt.secret must not be empty when identity.mode=jwt")
		}
	case "oidc":
		if c.Identity.OIDC.IssuerURL == "" || c.Identity.OIDC.ClientID == "" {
			return fmt.Errorf("identity.oidc.issuer_url and client_id must be set when identity.mode=oidc")
		}
	default:
		return fmt.Errorf("identity.mode must be jwt or oidc (got %q)", c.Identity.Mode)
	}
	if c.Identity.RoleClaim == "" {
		return fmt.Errorf("identity.role_claim must not be empty")
	}

	// CDN signing material is loaded once here; a bad key must stop the
	// process rather than fail every request.
	if c.CDN.KeyName == "" {
		return fmt.Errorf("cdn.key_name must not be empty")
	}
	if c.CDN.SecretKey == "" {
		return fmt.Errorf("cdn.secret_key must not be empty")
	}
	if _, err := base64.StdEncoding.DecodeString(c.CDN.SecretKey); err != nil {
		if _, urlErr := base64.URLEncoding.DecodeString(c.CDN.SecretKey); urlErr != nil {
			return fmt.Errorf("cdn.secret_key is not valid base64: %w", err)
		}
	}
	if c.CDN.CookieName == "" {
		return fmt.Errorf("cdn.cookie_name must not be empty")
	}
	if u, err := url.Parse(c.CDN.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("cdn.base_url must be an absolute URL (got %q)", c.CDN.BaseURL)
	}
	if c.CDN.MaxUnboundedTTL <= 0 {
		return fmt.Errorf("cdn.max_unbounded_ttl must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
// A missing file is not an error, but the result is always validated, so a
// deployment without CDN key material fails here.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults. CDN key material
// has no default.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.LookupTimeout = 5 * time.Second

	cfg.Store.Driver = "memory"
	cfg.Store.Redis.Address = "localhost:6379"
	cfg.Store.Redis.DB = 0
	cfg.Store.Redis.PoolSize = 10
	cfg.Store.Breaker.Enabled = true
	cfg.Store.Breaker.FailureThreshold = 5
	cfg.Store.Breaker.OpenTimeout = 30 * time.Second

	cfg.Identity.Mode = "jwt"
	cfg.Identity.RoleClaim = "role"

	cfg.CDN.CookieName = "Cloud-CDN-Cookie"
	cfg.CDN.Secure = true
	cfg.CDN.MaxUnboundedTTL = 24 * time.Hour

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("VODGATE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("VODGATE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if driver := os.Getenv("VODGATE_STORE_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}
	if dsn := os.Getenv("VODGATE_STORE_DSN"); dsn != "" {
		c.Store.DSN = dsn
	}
	if secret := os.Getenv("VODGATE_JWT_SECRET"); secret != "" {
		c.Identity.JWT.Secret = secret
	}
	if name := os.Getenv("VODGATE_CDN_KEY_NAME"); name != "" {
		c.CDN.KeyName = name
	}
	if key := os.Getenv("VODGATE_CDN_SECRET_KEY"); key != "" {
		c.CDN.SecretKey = key
	}
	if base := os.Getenv("VODGATE_CDN_BASE_URL"); base != "" {
		c.CDN.BaseURL = base
	}
	if secure := os.Getenv("VODGATE_CDN_SECURE"); secure != "" {
		if v, err := strconv.ParseBool(secure); err == nil {
			c.CDN.Secure = v
		}
	}
}
