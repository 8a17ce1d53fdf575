package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "CAMPUS"

// Revocation backends.
const (
	RevocationBackendRedis    = "redis"
	RevocationBackendDatabase = "database"
	RevocationBackendMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN). postgres:// URLs select PostgreSQL, anything else SQLite.
	DatabaseURL string

	// Server bind address (host:port)
	ServerAddr string

	// Public base URL of the API
	ServerURL string

	// Maximum database connection pool size
	MaxDBConnections int

	// Enable debug logging
	Debug bool

	Log           LogConfig
	Auth          AuthConfig
	Redis         RedisConfig
	Revocation    RevocationConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
}

// LogConfig controls the zerolog root logger.
type LogConfig struct {
	Level  string // trace|debug|info|warn|error
	Format string // json|console
}

// AuthConfig is constructed once at startup and handed to every auth component.
// Nothing in the auth packages reads configuration on its own.
type AuthConfig struct {
	// TokenSecret signs and verifies bearer tokens (HS256).
	TokenSecret string
	// TokenTTL is the fixed lifetime of issued tokens.
	TokenTTL time.Duration
	// TokenIssuer is written to and required in the iss claim.
	TokenIssuer string
	// BcryptCost is used when hashing new local passwords.
	BcryptCost int
	// RoleRules is the ordered role policy table. First match wins.
	RoleRules []RoleRuleConfig
	// Google enables the external OAuth2 flow when non-nil.
	Google *GoogleConfig
}

// RoleRuleConfig is one row of the role policy table.
// Pattern is a case-insensitive regular expression tested against the email and its domain.
// Expr is an optional go-bexpr expression over email, local and domain.
type RoleRuleConfig struct {
	Pattern string `mapstructure:"pattern"`
	Expr    string `mapstructure:"expr"`
	Role    string `mapstructure:"role"`
}

// GoogleConfig holds the OAuth2 client registration used for Google sign-in.
type GoogleConfig struct {
	Issuer               string
	ClientID             string
	ClientSecret         string
	RedirectURI          string
	Scopes               []string
	RequireEmail         bool
	RequireVerifiedEmail bool
	ExchangeTimeout      time.Duration
	// CookieKey seeds the state cookie hash and encryption keys. Random per process when empty.
	CookieKey string
}

// RedisConfig holds the connection URL for the redis revocation backend.
type RedisConfig struct {
	URL string
}

// RevocationConfig selects and tunes the token denylist backend.
type RevocationConfig struct {
	Backend       string
	SweepInterval time.Duration
	MemorySize    int
}

// RateLimitConfig bounds credential-accepting endpoints per client IP.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig configures OpenTelemetry tracing export.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	OTLPInsecure   bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// DefaultRoleRules mirrors the role table the service has always shipped with.
func DefaultRoleRules() []RoleRuleConfig {
	return []RoleRuleConfig{
		{Pattern: `^admin\.edu$`, Role: "admin"},
		{Pattern: `^staff\.edu$`, Role: "staff"},
		{Pattern: `^student\.school\.edu$`, Role: "student"},
		{Pattern: `^.*@gmail\.com$`, Role: "student"},
	}
}

// Load reads configuration from the global viper instance. Values come from, in order of
// precedence: CAMPUS_ prefixed environment variables, a config file registered on viper by
// the caller, and the defaults below.
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:      v.GetString("database_url"),
		ServerAddr:       v.GetString("server_addr"),
		ServerURL:        v.GetString("server_url"),
		MaxDBConnections: v.GetInt("max_db_connections"),
		Debug:            v.GetBool("debug"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Auth: AuthConfig{
			TokenSecret: v.GetString("auth.token_secret"),
			TokenTTL:    v.GetDuration("auth.token_ttl"),
			TokenIssuer: v.GetString("auth.token_issuer"),
			BcryptCost:  v.GetInt("auth.bcrypt_cost"),
			Google:      loadGoogleConfig(v),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis.url"),
		},
		Revocation: RevocationConfig{
			Backend:       strings.ToLower(v.GetString("revocation.backend")),
			SweepInterval: v.GetDuration("revocation.sweep_interval"),
			MemorySize:    v.GetInt("revocation.memory_size"),
		},
		RateLimit: RateLimitConfig{
			PerSecond: v.GetFloat64("rate_limit.per_second"),
			Burst:     v.GetInt("rate_limit.burst"),
		},
		CORS: CORSConfig{
			AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint:   v.GetString("observability.otlp_endpoint"),
			OTLPInsecure:   v.GetBool("observability.otlp_insecure"),
			ServiceName:    v.GetString("observability.service_name"),
			ServiceVersion: v.GetString("observability.service_version"),
			Environment:    v.GetString("observability.environment"),
		},
	}

	rules, err := loadRoleRules(v)
	if err != nil {
		return nil, err
	}
	cfg.Auth.RoleRules = rules

	if cfg.Debug && cfg.Log.Level == "info" {
		cfg.Log.Level = "debug"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.token_issuer", "campusapi")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.google.issuer", "https://accounts.google.com")
	v.SetDefault("auth.google.scopes", []string{"openid", "profile", "email"})
	v.SetDefault("auth.google.require_email", true)
	v.SetDefault("auth.google.require_verified_email", true)
	v.SetDefault("auth.google.exchange_timeout", 5*time.Second)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("revocation.backend", RevocationBackendRedis)
	v.SetDefault("revocation.sweep_interval", 10*time.Minute)
	v.SetDefault("revocation.memory_size", 100000)
	v.SetDefault("rate_limit.per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("observability.service_name", "campusapi")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
}

// loadGoogleConfig returns nil when no client id is configured (Google sign-in disabled).
func loadGoogleConfig(v *viper.Viper) *GoogleConfig {
	clientID := v.GetString("auth.google.client_id")
	if clientID == "" {
		return nil
	}
	return &GoogleConfig{
		Issuer:               v.GetString("auth.google.issuer"),
		ClientID:             clientID,
		ClientSecret:         v.GetString("auth.google.client_secret"),
		RedirectURI:          v.GetString("auth.google.redirect_uri"),
		Scopes:               v.GetStringSlice("auth.google.scopes"),
		RequireEmail:         v.GetBool("auth.google.require_email"),
		RequireVerifiedEmail: v.GetBool("auth.google.require_verified_email"),
		ExchangeTimeout:      v.GetDuration("auth.google.exchange_timeout"),
		CookieKey:            v.GetString("auth.google.cookie_key"),
	}
}

// loadRoleRules reads auth.role_rules from the config file. Environment variables cannot
// express a list of tables, so the default table applies unless a file provides one.
func loadRoleRules(v *viper.Viper) ([]RoleRuleConfig, error) {
	if !v.IsSet("auth.role_rules") {
		return DefaultRoleRules(), nil
	}
	var rules []RoleRuleConfig
	if err := v.UnmarshalKey("auth.role_rules", &rules); err != nil {
		return nil, fmt.Errorf("auth.role_rules is invalid: %w", err)
	}
	if len(rules) == 0 {
		return DefaultRoleRules(), nil
	}
	return rules, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (%s_DATABASE_URL)", EnvPrefix)
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required (%s_SERVER_URL)", EnvPrefix)
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth.token_secret is required (%s_AUTH_TOKEN_SECRET)", EnvPrefix)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}

	for i, rule := range c.Auth.RoleRules {
		if rule.Pattern == "" && rule.Expr == "" {
			return fmt.Errorf("auth.role_rules[%d]: pattern or expr is required", i)
		}
		if rule.Role == "" {
			return fmt.Errorf("auth.role_rules[%d]: role is required", i)
		}
	}

	if g := c.Auth.Google; g != nil {
		if g.ClientSecret == "" {
			return fmt.Errorf("%s_AUTH_GOOGLE_CLIENT_SECRET is required when Google sign-in is enabled", EnvPrefix)
		}
		if g.RedirectURI == "" {
			return fmt.Errorf("%s_AUTH_GOOGLE_REDIRECT_URI is required when Google sign-in is enabled", EnvPrefix)
		}
	}

	switch c.Revocation.Backend {
	case RevocationBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("%s_REDIS_URL is required for the redis revocation backend", EnvPrefix)
		}
	case RevocationBackendDatabase, RevocationBackendMemory:
	default:
		return fmt.Errorf("unknown revocation backend %q (expected redis, database or memory)", c.Revocation.Backend)
	}

	return nil
}
