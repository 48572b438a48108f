package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (NEXUS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (NEXUS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	Gateway      GatewayConfig
	Auth         AuthConfig
	Scheduler    SchedulerConfig
	Images       ImagesConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// GatewayConfig holds the payment gateway credentials. KeySecret signs
// client-side confirmations, WebhookSecret signs webhook bodies.
type GatewayConfig struct {
	BaseURL       string `default:"https://api.razorpay.com/v1" usage:"Payment gateway API base URL" flag:"gateway-url"`
	KeyID         string `usage:"Gateway API key id" flag:"gateway-key-id"`
	KeySecret     string `usage:"Gateway API key secret" flag:"gateway-key-secret"`
	WebhookSecret string `usage:"Gateway webhook signing secret" flag:"gateway-webhook-secret"`
	Currency      string `default:"INR" usage:"ISO currency code for gateway charges"`
}

// AuthConfig controls bearer-token verification and the admin allowlist.
type AuthConfig struct {
	JWTSecret   string   `usage:"HMAC secret for bearer token verification" flag:"jwt-secret"`
	AdminEmails []string `usage:"Emails granted admin access" flag:"admin-emails"`
}

// SchedulerConfig points at the background-job bus. With no brokers
// configured, scheduled events are dropped.
type SchedulerConfig struct {
	Brokers []string `usage:"Kafka broker addresses for scheduled events"`
	Topic   string   `default:"storefront.scheduler" usage:"Scheduler topic name"`
}

// ImagesConfig holds the object storage credentials for logo uploads.
type ImagesConfig struct {
	UploadURL  string `usage:"Object storage upload endpoint" flag:"images-upload-url"`
	PrivateKey string `usage:"Object storage private API key" flag:"images-private-key"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "NEXUS",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set NEXUS_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set NEXUS_AUTH_JWT_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's NEXUS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
