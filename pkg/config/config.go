package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Features  FeatureFlagsConfig
	Retention RetentionConfig
	RateLimit RateLimitConfig
	Mailer    MailerConfig
	Inbound   InboundMailConfig
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
	Env          string `envconfig:"MEDIADESK_APP_ENV" required:"true"`
	Port         string `envconfig:"MEDIADESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEDIADESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEDIADESK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"MEDIADESK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEDIADESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MEDIADESK_DB_DSN"`
	Driver string `envconfig:"MEDIADESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEDIADESK_DB_HOST"`
	LegacyPort     int    `envconfig:"MEDIADESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEDIADESK_DB_USER"`
	LegacyPassword string `envconfig:"MEDIADESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEDIADESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEDIADESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEDIADESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEDIADESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEDIADESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEDIADESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	RetryAttempts int           `envconfig:"MEDIADESK_DB_RETRY_ATTEMPTS" default:"3"`
	RetryBaseWait time.Duration `envconfig:"MEDIADESK_DB_RETRY_BASE_WAIT" default:"50ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEDIADESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEDIADESK_REDIS_ADDRESS"`
	Password     string        `envconfig:"MEDIADESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEDIADESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEDIADESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEDIADESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEDIADESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEDIADESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEDIADESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MEDIADESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEDIADESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MEDIADESK_JWT_EXPIRATION_MINUTES" default:"480"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MEDIADESK_AUTO_MIGRATE" default:"false"`
}

// RetentionConfig controls the settled-reservation sweep.
type RetentionConfig struct {
	Window        time.Duration `envconfig:"MEDIADESK_RETENTION_WINDOW" default:"1440h"`
	SweepInterval time.Duration `envconfig:"MEDIADESK_RETENTION_SWEEP_INTERVAL" default:"24h"`
	LockKey       string        `envconfig:"MEDIADESK_RETENTION_LOCK_KEY" default:"mediadesk:cron:lock"`
	LockTTL       time.Duration `envconfig:"MEDIADESK_RETENTION_LOCK_TTL" default:"25h"`
}

// RateLimitConfig throttles the unauthenticated surfaces.
type RateLimitConfig struct {
	SubmitWindow     time.Duration `envconfig:"MEDIADESK_RATE_LIMIT_SUBMIT_WINDOW" default:"1h"`
	SubmitIPLimit    int           `envconfig:"MEDIADESK_RATE_LIMIT_SUBMIT_IP_LIMIT" default:"30"`
	SubmitEmailLimit int           `envconfig:"MEDIADESK_RATE_LIMIT_SUBMIT_EMAIL_LIMIT" default:"10"`
	InboundWindow    time.Duration `envconfig:"MEDIADESK_RATE_LIMIT_INBOUND_WINDOW" default:"1m"`
	InboundIPLimit   int           `envconfig:"MEDIADESK_RATE_LIMIT_INBOUND_IP_LIMIT" default:"120"`
}

// MailerConfig carries the outbound mail credentials, injected once at boot.
type MailerConfig struct {
	APIKey     string        `envconfig:"MEDIADESK_MAILER_API_KEY"`
	FromEmail  string        `envconfig:"MEDIADESK_MAILER_FROM_EMAIL" default:"equipment-desk@example.org"`
	FromName   string        `envconfig:"MEDIADESK_MAILER_FROM_NAME" default:"Equipment Desk"`
	Endpoint   string        `envconfig:"MEDIADESK_MAILER_ENDPOINT" default:"https://api.sendgrid.com/v3/mail/send"`
	Timeout    time.Duration `envconfig:"MEDIADESK_MAILER_TIMEOUT" default:"5s"`
	PickupLink string        `envconfig:"MEDIADESK_MAILER_PICKUP_LINK" default:""`
	Disabled   bool          `envconfig:"MEDIADESK_MAILER_DISABLED" default:"false"`
}

// InboundMailConfig authenticates the inbound-mail webhook channel.
type InboundMailConfig struct {
	WebhookToken string `envconfig:"MEDIADESK_INBOUND_WEBHOOK_TOKEN"`
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
