package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultAccessSecret = "dev_access_secret_change_me"

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	OTP       OTPConfig
	Google    GoogleConfig
	Demo      DemoConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	Realtime  RealtimeConfig
}

type AppConfig struct {
	Name        string        `env:"APP_NAME" envDefault:"sprintdesk"`
	Environment string        `env:"APP_ENV" envDefault:"development"`
	Version     string        `env:"APP_VERSION" envDefault:"1.0.0"`
	Port        string        `env:"APP_PORT" envDefault:"8080"`
	Timeout     time.Duration `env:"APP_TIMEOUT" envDefault:"30s"`
	BaseURL     string        `env:"APP_BASE_URL" envDefault:"http://localhost:5173"`
	CORSOrigin  string        `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogsPath    string        `env:"LOGS_PATH" envDefault:"logs"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	Name            string        `env:"DB_NAME" envDefault:"sprintdesk"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"10m"`
}

type RedisConfig struct {
	Enabled      bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Host         string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port         int           `env:"REDIS_PORT" envDefault:"6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	Database     int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type AuthConfig struct {
	AccessSecret      string        `env:"JWT_ACCESS_SECRET" envDefault:"dev_access_secret_change_me"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	RefreshCookieName string        `env:"REFRESH_COOKIE_NAME" envDefault:"refresh_token"`
	RefreshCookiePath string        `env:"REFRESH_COOKIE_PATH" envDefault:"/"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`
}

type OTPConfig struct {
	TTL         time.Duration `env:"OTP_TTL" envDefault:"10m"`
	Length      int           `env:"OTP_LENGTH" envDefault:"6"`
	MaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
}

type GoogleConfig struct {
	ClientID string `env:"GOOGLE_CLIENT_ID"`
}

type DemoConfig struct {
	Enabled     bool   `env:"DEMO_MODE" envDefault:"false"`
	OwnerEmail  string `env:"DEMO_OWNER_EMAIL" envDefault:"demo.owner@sprintdesk.dev"`
	MemberEmail string `env:"DEMO_MEMBER_EMAIL" envDefault:"demo.member@sprintdesk.dev"`
	Password    string `env:"DEMO_PASSWORD" envDefault:"Demo@1234"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"SprintDesk <no-reply@sprintdesk.dev>"`

	Timeout          time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`
	BreakerThreshold int           `env:"SMTP_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"SMTP_BREAKER_COOLDOWN" envDefault:"30s"`
}

type RateLimitConfig struct {
	AuthRequests int           `env:"RATE_LIMIT_AUTH_REQUESTS" envDefault:"50"`
	AuthWindow   time.Duration `env:"RATE_LIMIT_AUTH_WINDOW" envDefault:"15m"`
	OTPRequests  int           `env:"RATE_LIMIT_OTP_REQUESTS" envDefault:"5"`
	OTPWindow    time.Duration `env:"RATE_LIMIT_OTP_WINDOW" envDefault:"10m"`
}

type RealtimeConfig struct {
	SendBuffer   int           `env:"WS_SEND_BUFFER" envDefault:"64"`
	PingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	Channel      string        `env:"REALTIME_CHANNEL" envDefault:"sprintdesk:events"`
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	config := &Config{}
	if err := ParseEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.IsProduction() && c.Auth.AccessSecret == defaultAccessSecret {
		return errors.New("JWT_ACCESS_SECRET must be set in production")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.OTP.Length < 4 || c.OTP.MaxAttempts < 1 {
		return errors.New("OTP_LENGTH must be at least 4 and OTP_MAX_ATTEMPTS at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) DatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
