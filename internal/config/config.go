package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Follow-up store backends.
const (
	StorePostgres = "postgres"
	StoreCSV      = "csv"
)

type Config struct {
	Port                  string   `mapstructure:"PORT"`
	Env                   string   `mapstructure:"ENV"`
	LogLevel              string   `mapstructure:"LOG_LEVEL"`
	DatabaseURL           string   `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32    `mapstructure:"DB_MIN_CONNS"`
	FollowupStore         string   `mapstructure:"FOLLOWUP_STORE"`
	FollowupCSVPath       string   `mapstructure:"FOLLOWUP_CSV_PATH"`
	ModelURL              string   `mapstructure:"MODEL_URL"`
	ModelTimeoutSeconds   int      `mapstructure:"MODEL_TIMEOUT_SECONDS"`
	ModelRetries          int      `mapstructure:"MODEL_RETRIES"`
	BaselineCSVPath       string   `mapstructure:"BASELINE_CSV_PATH"`
	BaselineReloadCron    string   `mapstructure:"BASELINE_RELOAD_CRON"`
	HeuristicSeed         int64    `mapstructure:"HEURISTIC_SEED"`
	CORSOrigins           []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS          float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeoutSeconds int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	BodyLimit             string   `mapstructure:"BODY_LIMIT"`
	AuthSigningKey        string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthJWKSURL           string   `mapstructure:"AUTH_JWKS_URL"`
	AuthIssuer            string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience          string   `mapstructure:"AUTH_AUDIENCE"`
	WebhookURLs           []string `mapstructure:"WEBHOOK_URLS"`
	WebhookEvents         []string `mapstructure:"WEBHOOK_EVENTS"`
	WebhookSecret         string   `mapstructure:"WEBHOOK_SECRET"`
	WebhookRetries        int      `mapstructure:"WEBHOOK_RETRIES"`
	MetricsEnabled        bool     `mapstructure:"METRICS_ENABLED"`
	TLSEnabled            bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile           string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile            string   `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"FOLLOWUP_STORE", "FOLLOWUP_CSV_PATH",
	"MODEL_URL", "MODEL_TIMEOUT_SECONDS", "MODEL_RETRIES",
	"BASELINE_CSV_PATH", "BASELINE_RELOAD_CRON", "HEURISTIC_SEED",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT_SECONDS", "BODY_LIMIT",
	"AUTH_SIGNING_KEY", "AUTH_JWKS_URL", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"WEBHOOK_URLS", "WEBHOOK_EVENTS", "WEBHOOK_SECRET", "WEBHOOK_RETRIES",
	"METRICS_ENABLED", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads configuration from an optional .env file and the environment.
// It does not validate; call Validate before serving.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("FOLLOWUP_STORE", StoreCSV)
	v.SetDefault("FOLLOWUP_CSV_PATH", "data/patient_followups.csv")
	v.SetDefault("MODEL_TIMEOUT_SECONDS", 5)
	v.SetDefault("MODEL_RETRIES", 2)
	v.SetDefault("BASELINE_CSV_PATH", "data/staffing_baseline.csv")
	v.SetDefault("BASELINE_RELOAD_CRON", "")
	v.SetDefault("HEURISTIC_SEED", 0)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("WEBHOOK_EVENTS", "followup.*")
	v.SetDefault("WEBHOOK_RETRIES", 3)
	v.SetDefault("METRICS_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.WebhookURLs = splitList(v.GetString("WEBHOOK_URLS"))
	cfg.WebhookEvents = splitList(v.GetString("WEBHOOK_EVENTS"))
	cfg.FollowupStore = strings.ToLower(strings.TrimSpace(cfg.FollowupStore))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesPostgres reports whether follow-ups are stored in PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.FollowupStore == StorePostgres
}

// Validate checks that the configuration is safe to serve with.
func (c *Config) Validate() error {
	switch c.FollowupStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when FOLLOWUP_STORE is %q", StorePostgres)
		}
	case StoreCSV:
		if c.FollowupCSVPath == "" {
			return fmt.Errorf("FOLLOWUP_CSV_PATH is required when FOLLOWUP_STORE is %q", StoreCSV)
		}
	default:
		return fmt.Errorf("FOLLOWUP_STORE must be %q or %q, got %q", StorePostgres, StoreCSV, c.FollowupStore)
	}

	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set outside development (current ENV=%q)", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
	}

	if c.ModelTimeoutSeconds <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT_SECONDS must be positive, got %d", c.ModelTimeoutSeconds)
	}
	if c.ModelRetries < 0 {
		return fmt.Errorf("MODEL_RETRIES must not be negative, got %d", c.ModelRetries)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}

	if len(c.WebhookURLs) > 0 && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URLS is set")
	}
	if c.WebhookRetries < 0 {
		return fmt.Errorf("WEBHOOK_RETRIES must not be negative, got %d", c.WebhookRetries)
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}
	return nil
}
