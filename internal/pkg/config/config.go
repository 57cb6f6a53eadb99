package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, secrets)
// - default: Values common across all environments (timezone, timeouts, fee rate)
// -----------------------------------------------------------------------------

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	CORS       CORSConfig
	Log        LogConfig
	JWT        JWTConfig
	Cookie     CookieConfig
	Redis      RedisConfig
	Guest      GuestConfig
	Settlement SettlementConfig
	Gateway    GatewayConfig
	Identity   IdentityConfig
	RateLimit  RateLimitConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host             string        `envconfig:"DB_HOST" default:"localhost"`
	Port             string        `envconfig:"DB_PORT" default:"5432"`
	User             string        `envconfig:"DB_USER" required:"true"`
	Password         string        `envconfig:"DB_PASSWORD" required:"true"`
	DBName           string        `envconfig:"DB_NAME" required:"true"`
	SSLMode          string        `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone         string        `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns         int32         `envconfig:"DB_MAX_CONNS" default:"20"`
	ConnectTimeout   time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
	StatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"3s"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

type JWTConfig struct {
	Secret               string `envconfig:"JWT_SECRET" required:"true"`
	Issuer               string `envconfig:"JWT_ISSUER" default:"flightshare"`
	AccessTokenDuration  string `envconfig:"JWT_ACCESS_TOKEN_DURATION" default:"15m"`
	RefreshTokenDuration string `envconfig:"JWT_REFRESH_TOKEN_DURATION" default:"168h"`
	HintDuration         string `envconfig:"JWT_HINT_DURATION" default:"1h"`
}

type CookieConfig struct {
	Domain   string `envconfig:"COOKIE_DOMAIN" default:""`
	Secure   bool   `envconfig:"COOKIE_SECURE" default:"true"`
	SameSite string `envconfig:"COOKIE_SAME_SITE" default:"Lax"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type GuestConfig struct {
	ContinuationTTL     time.Duration `envconfig:"GUEST_CONTINUATION_TTL" default:"30m"`
	ContinuationBaseURL string        `envconfig:"GUEST_CONTINUATION_BASE_URL" default:"http://localhost:3000/login"`
}

type SettlementConfig struct {
	FeeRate           Rate          `envconfig:"FEE_RATE" default:"0.05"`
	PendingRetryAfter time.Duration `envconfig:"SETTLEMENT_PENDING_RETRY_AFTER" default:"30s"`
}

type GatewayConfig struct {
	Mode    string        `envconfig:"GATEWAY_MODE" default:"sandbox"` // sandbox | http
	BaseURL string        `envconfig:"GATEWAY_BASE_URL" default:""`
	APIKey  string        `envconfig:"GATEWAY_API_KEY" default:""`
	Timeout time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`
}

type IdentityConfig struct {
	AllowHints bool `envconfig:"IDENTITY_ALLOW_HINTS" default:"true"`
}

type RateLimitConfig struct {
	Enabled bool   `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Rate    string `envconfig:"RATE_LIMIT" default:"30-M"`
}

type TelemetryConfig struct {
	Enabled     bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint    string `envconfig:"OTEL_ENDPOINT" default:""`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"flightshare"`
}

// Rate is a decimal fraction read from the environment, e.g. "0.05".
type Rate struct {
	decimal.Decimal
}

func (r *Rate) Decode(value string) error {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", value, err)
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("rate %q must be in [0, 1)", value)
	}
	r.Decimal = d
	return nil
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	// .env is optional; real environments inject variables directly
	_ = godotenv.Load()

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:             "localhost",
			Port:             "15433", // Test DB port
			User:             "test",
			Password:         "test",
			DBName:           "test_db",
			SSLMode:          "disable",
			TimeZone:         "UTC",
			MaxConns:         20,
			ConnectTimeout:   5 * time.Second,
			StatementTimeout: 3 * time.Second,
		},
		Log: LogConfig{
			Level:      "error", // Error level only for tests
			TimeZone:   "UTC",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret:               "test-secret-key-for-flightshare",
			Issuer:               "flightshare-test",
			AccessTokenDuration:  "15m",
			RefreshTokenDuration: "24h",
			HintDuration:         "1h",
		},
		Cookie: CookieConfig{
			SameSite: "Lax",
		},
		Guest: GuestConfig{
			ContinuationTTL:     30 * time.Minute,
			ContinuationBaseURL: "http://localhost:3000/login",
		},
		Settlement: SettlementConfig{
			FeeRate:           Rate{Decimal: decimal.RequireFromString("0.05")},
			PendingRetryAfter: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			Mode:    "sandbox",
			Timeout: 2 * time.Second,
		},
		Identity: IdentityConfig{
			AllowHints: true,
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			Rate:    "1000-M",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "flightshare-test",
		},
	}
}
