package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = "NEUROESTANTE"
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	OpenAI        OpenAIConfig
	Webhook       WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NEUROESTANTE_APP_ENV" required:"true"`
	Port         string `envconfig:"NEUROESTANTE_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"NEUROESTANTE_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"NEUROESTANTE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NEUROESTANTE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NEUROESTANTE_DB_DSN"`
	Driver string `envconfig:"NEUROESTANTE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"NEUROESTANTE_DB_HOST"`
	Port     int    `envconfig:"NEUROESTANTE_DB_PORT" default:"5432"`
	User     string `envconfig:"NEUROESTANTE_DB_USER"`
	Password string `envconfig:"NEUROESTANTE_DB_PASSWORD"`
	Name     string `envconfig:"NEUROESTANTE_DB_NAME"`
	SSLMode  string `envconfig:"NEUROESTANTE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NEUROESTANTE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NEUROESTANTE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NEUROESTANTE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NEUROESTANTE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db config: either NEUROESTANTE_DB_DSN or host/user/name are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"NEUROESTANTE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NEUROESTANTE_REDIS_ADDR"`
	Password     string        `envconfig:"NEUROESTANTE_REDIS_PASSWORD"`
	DB           int           `envconfig:"NEUROESTANTE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NEUROESTANTE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NEUROESTANTE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NEUROESTANTE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NEUROESTANTE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NEUROESTANTE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"NEUROESTANTE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"NEUROESTANTE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"NEUROESTANTE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"NEUROESTANTE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NEUROESTANTE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"NEUROESTANTE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"NEUROESTANTE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"NEUROESTANTE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NEUROESTANTE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"NEUROESTANTE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"NEUROESTANTE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"NEUROESTANTE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"NEUROESTANTE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"NEUROESTANTE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"NEUROESTANTE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NEUROESTANTE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NEUROESTANTE_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey         string `envconfig:"NEUROESTANTE_STRIPE_API_KEY"`
	Secret         string `envconfig:"NEUROESTANTE_STRIPE_WEBHOOK_SECRET"`
	Env            string `envconfig:"NEUROESTANTE_STRIPE_ENV" default:"test"`
	PriceIDMonthly string `envconfig:"NEUROESTANTE_STRIPE_PRICE_ID_MONTHLY"`
	PriceIDYearly  string `envconfig:"NEUROESTANTE_STRIPE_PRICE_ID_YEARLY"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OpenAIConfig struct {
	APIKey string `envconfig:"NEUROESTANTE_OPENAI_API_KEY"`
	Model  string `envconfig:"NEUROESTANTE_OPENAI_MODEL" default:"gpt-4o-mini"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"NEUROESTANTE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}
