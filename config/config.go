package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server     ServerConfig     `envconfig:"SERVER"`
	Database   DatabaseConfig   `envconfig:"DB"`
	JWT        JWTConfig        `envconfig:"JWT"`
	Payment    PaymentConfig    `envconfig:"PAYMENT"`
	Gateway    GatewayConfig    `envconfig:"PIX_GATEWAY"`
	VIP        VIPConfig        `envconfig:"VIP"`
	Roulette   RouletteConfig   `envconfig:"ROULETTE"`
	RateLimit  RateLimitConfig  `envconfig:"RATE_LIMIT"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Cloudinary CloudinaryConfig `envconfig:"CLOUDINARY"`
	Firebase   FirebaseConfig   `envconfig:"FIREBASE"`
	Log        LogConfig        `envconfig:"LOG"`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8099"`
	Env          string        `envconfig:"ENV" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	// Driver is "mysql" or "sqlite".
	Driver          string        `envconfig:"DRIVER" default:"mysql"`
	DSN             string        `envconfig:"DSN" default:"vipclub:vipclub@tcp(localhost:3306)/vipclub?charset=utf8mb4&parseTime=True&loc=UTC"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"100"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
}

// JWTConfig describes the hosted auth provider's access tokens. Secret is the
// provider's HS256 signing secret.
type JWTConfig struct {
	Secret       string        `envconfig:"SECRET" default:"change-me-in-production"`
	Issuer       string        `envconfig:"ISSUER"`
	Audience     string        `envconfig:"AUDIENCE" default:"authenticated"`
	AccessExpiry time.Duration `envconfig:"ACCESS_EXPIRY" default:"1h"`
}

type PaymentConfig struct {
	WebhookSecret  string `envconfig:"WEBHOOK_SECRET"`
	WebhookBaseURL string `envconfig:"WEBHOOK_BASE_URL" default:"http://localhost:8099"`
	// RequireAuth decides whether checkout needs a logged-in user. When false,
	// guest checkouts create transactions without an owner.
	RequireAuth   bool  `envconfig:"REQUIRE_AUTH" default:"false"`
	DefaultCents  int64 `envconfig:"DEFAULT_AMOUNT_CENTS" default:"2500"`
	MinCents      int64 `envconfig:"MIN_AMOUNT_CENTS" default:"100"`
	MaxCents      int64 `envconfig:"MAX_AMOUNT_CENTS" default:"10000000"`
	RefreshOnPoll bool  `envconfig:"REFRESH_ON_POLL" default:"true"`
	// ChargeTTL is how long the payer has to pay a PIX charge.
	ChargeTTL time.Duration `envconfig:"CHARGE_TTL" default:"30m"`
}

type GatewayConfig struct {
	// Provider is "http" for the real PIX gateway or "stub" for local development.
	Provider string        `envconfig:"PROVIDER" default:"stub"`
	BaseURL  string        `envconfig:"BASE_URL" default:"https://api.pixgateway.com.br"`
	APIKey   string        `envconfig:"API_KEY"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

type VIPConfig struct {
	DurationDays int `envconfig:"DURATION_DAYS" default:"30"`
}

type RouletteConfig struct {
	PriceCents int64 `envconfig:"PRICE_CENTS" default:"500"`
	PrizeDays  int   `envconfig:"PRIZE_DAYS" default:"30"`
}

type RateLimitConfig struct {
	// Backend is "memory" or "redis".
	Backend string        `envconfig:"BACKEND" default:"memory"`
	Limit   int           `envconfig:"LIMIT" default:"100"`
	Window  time.Duration `envconfig:"WINDOW" default:"1m"`
}

type RedisConfig struct {
	URL       string `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix string `envconfig:"KEY_PREFIX" default:"vipclub:"`
}

type CloudinaryConfig struct {
	CloudName string `envconfig:"CLOUD_NAME"`
	APIKey    string `envconfig:"API_KEY"`
	APISecret string `envconfig:"API_SECRET"`
	QRFolder  string `envconfig:"QR_FOLDER" default:"pix-qr"`
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type FirebaseConfig struct {
	ServiceAccountPath string `envconfig:"SERVICE_ACCOUNT_PATH"`
	OpsTopic           string `envconfig:"OPS_TOPIC" default:"ops-alerts"`
}

type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[vipclub]"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.VIP.DurationDays <= 0 {
		cfg.VIP.DurationDays = 30
	}
	if cfg.Roulette.PrizeDays <= 0 {
		cfg.Roulette.PrizeDays = cfg.VIP.DurationDays
	}
	return &cfg, nil
}

// Default returns the configuration built from struct defaults, ignoring the
// prefixed process environment. Used by tests.
func Default() *Config {
	var cfg Config
	_ = envconfig.Process("VIPCLUB_DEFAULTS_ONLY", &cfg)
	return &cfg
}
