package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Chapa    ChapaConfig
	Delivery DeliveryConfig
	OTP      OTPConfig
	Admin    AdminConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Eventing EventingConfig
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
	Env          string `envconfig:"MISRAK_APP_ENV" required:"true"`
	Port         string `envconfig:"MISRAK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MISRAK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MISRAK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MISRAK_DB_DSN"`
	Driver string `envconfig:"MISRAK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MISRAK_DB_HOST"`
	LegacyPort     int    `envconfig:"MISRAK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MISRAK_DB_USER"`
	LegacyPassword string `envconfig:"MISRAK_DB_PASSWORD"`
	LegacyName     string `envconfig:"MISRAK_DB_NAME"`
	LegacySSLMode  string `envconfig:"MISRAK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MISRAK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MISRAK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MISRAK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MISRAK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"MISRAK_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MISRAK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MISRAK_REDIS_ADDR"`
	Password     string        `envconfig:"MISRAK_REDIS_PASSWORD"`
	DB           int           `envconfig:"MISRAK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MISRAK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MISRAK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MISRAK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MISRAK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MISRAK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MISRAK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MISRAK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MISRAK_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// ChapaConfig carries the payment gateway credentials and endpoints.
type ChapaConfig struct {
	SecretKey     string        `envconfig:"MISRAK_CHAPA_SECRET_KEY" required:"true"`
	WebhookSecret string        `envconfig:"MISRAK_CHAPA_WEBHOOK_SECRET"`
	Env           string        `envconfig:"MISRAK_CHAPA_ENV" default:"sandbox"`
	BaseURL       string        `envconfig:"MISRAK_CHAPA_BASE_URL" default:"https://api.chapa.co/v1"`
	CallbackURL   string        `envconfig:"MISRAK_CHAPA_CALLBACK_URL" required:"true"`
	ReturnURL     string        `envconfig:"MISRAK_CHAPA_RETURN_URL"`
	Timeout       time.Duration `envconfig:"MISRAK_CHAPA_TIMEOUT" default:"10s"`
	Currency      string        `envconfig:"MISRAK_CHAPA_CURRENCY" default:"ETB"`
}

// Environment returns the normalized Chapa environment (sandbox/production).
func (c ChapaConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(c.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// IsSandbox reports whether webhook signature checks may be bypassed.
// Production never bypasses them.
func (c ChapaConfig) IsSandbox() bool {
	return c.Environment() == "sandbox"
}

// DeliveryConfig sets the per-city delivery fees, in ETB.
type DeliveryConfig struct {
	FeeSameCity  string `envconfig:"MISRAK_DELIVERY_FEE_SAME_CITY" default:"100"`
	FeeCrossCity string `envconfig:"MISRAK_DELIVERY_FEE_CROSS_CITY" default:"250"`
}

type OTPConfig struct {
	MaxAttempts int `envconfig:"MISRAK_OTP_MAX_ATTEMPTS" default:"3"`
}

// AdminConfig holds the admin allowlist. It is parsed once at startup and
// injected into the authorization check, never read from process-global state.
type AdminConfig struct {
	AllowedIDs []string `envconfig:"MISRAK_ADMIN_USER_IDS"`
}

// IsAdmin reports whether the given platform user id is on the allowlist.
func (a AdminConfig) IsAdmin(userID string) bool {
	for _, id := range a.AllowedIDs {
		if strings.EqualFold(strings.TrimSpace(id), userID) {
			return true
		}
	}
	return false
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MISRAK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"MISRAK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrderEventsTopic        string `envconfig:"MISRAK_PUBSUB_ORDER_EVENTS_TOPIC" default:"ms-order-events"`
	OrderEventsSubscription string `envconfig:"MISRAK_PUBSUB_ORDER_EVENTS_SUBSCRIPTION" default:"ms-order-events-worker"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MISRAK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MISRAK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MISRAK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"MISRAK_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
