package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "courseworks"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	Stripe      StripeConfig
	Fulfillment FulfillmentConfig
	Mail        MailConfig
	MemberArea  MemberAreaConfig
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
	Env          string `envconfig:"COURSEWORKS_APP_ENV" required:"true"`
	Port         string `envconfig:"COURSEWORKS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COURSEWORKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURSEWORKS_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"COURSEWORKS_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COURSEWORKS_DB_DSN"`
	Driver string `envconfig:"COURSEWORKS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"COURSEWORKS_DB_HOST"`
	Port     int    `envconfig:"COURSEWORKS_DB_PORT" default:"5432"`
	User     string `envconfig:"COURSEWORKS_DB_USER"`
	Password string `envconfig:"COURSEWORKS_DB_PASSWORD"`
	Name     string `envconfig:"COURSEWORKS_DB_NAME"`
	SSLMode  string `envconfig:"COURSEWORKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COURSEWORKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURSEWORKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURSEWORKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURSEWORKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURSEWORKS_REDIS_URL"`
	Address      string        `envconfig:"COURSEWORKS_REDIS_ADDR"`
	Password     string        `envconfig:"COURSEWORKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"COURSEWORKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COURSEWORKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURSEWORKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURSEWORKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURSEWORKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURSEWORKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey           string        `envconfig:"COURSEWORKS_STRIPE_API_KEY"`
	SigningSecret    string        `envconfig:"COURSEWORKS_STRIPE_SIGNING_SECRET"`
	Env              string        `envconfig:"COURSEWORKS_STRIPE_ENV" default:"test"`
	SignatureMaxAge  time.Duration `envconfig:"COURSEWORKS_STRIPE_SIGNATURE_MAX_AGE" default:"300s"`
	GuardTTL         time.Duration `envconfig:"COURSEWORKS_STRIPE_GUARD_TTL" default:"720h"`
	DashboardBaseURL string        `envconfig:"COURSEWORKS_STRIPE_DASHBOARD_URL" default:"https://dashboard.stripe.com"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FulfillmentConfig struct {
	ClaimLease       time.Duration `envconfig:"COURSEWORKS_FULFILLMENT_CLAIM_LEASE" default:"2m"`
	StoreTimeout     time.Duration `envconfig:"COURSEWORKS_FULFILLMENT_STORE_TIMEOUT" default:"10s"`
	PaymentLogPath   string        `envconfig:"COURSEWORKS_FULFILLMENT_PAYMENT_LOG"`
	DefaultProductID string        `envconfig:"COURSEWORKS_FULFILLMENT_DEFAULT_PRODUCT" default:"course-bundle"`
}

type MailConfig struct {
	SendgridAPIKey string        `envconfig:"COURSEWORKS_SENDGRID_API_KEY"`
	FromEmail      string        `envconfig:"COURSEWORKS_MAIL_FROM" default:"payments@courseworks.example"`
	FromName       string        `envconfig:"COURSEWORKS_MAIL_FROM_NAME" default:"Courseworks Payments"`
	ReplyTo        string        `envconfig:"COURSEWORKS_MAIL_REPLY_TO"`
	AdminEmail     string        `envconfig:"COURSEWORKS_MAIL_ADMIN" required:"true"`
	SendTimeout    time.Duration `envconfig:"COURSEWORKS_MAIL_SEND_TIMEOUT" default:"30s"`
	MaxAttempts    uint64        `envconfig:"COURSEWORKS_MAIL_MAX_ATTEMPTS" default:"3"`
}

// MemberAreaConfig points at the course/member system that actually unlocks
// content. Entitlement grants call it; an empty base URL disables the call.
type MemberAreaConfig struct {
	BaseURL      string        `envconfig:"COURSEWORKS_MEMBER_AREA_URL"`
	APIToken     string        `envconfig:"COURSEWORKS_MEMBER_AREA_TOKEN"`
	GrantTimeout time.Duration `envconfig:"COURSEWORKS_MEMBER_AREA_GRANT_TIMEOUT" default:"10s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"COURSEWORKS_DB_HOST": db.Host,
		"COURSEWORKS_DB_USER": db.User,
		"COURSEWORKS_DB_NAME": db.Name,
	}
	for _, key := range []string{"COURSEWORKS_DB_HOST", "COURSEWORKS_DB_USER", "COURSEWORKS_DB_NAME"} {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either COURSEWORKS_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
