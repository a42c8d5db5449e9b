package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable the service reads.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Ledger        LedgerConfig
	Chat          ChatConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Mailer        MailerConfig
	Eventing      EventingConfig
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
	Env          string `envconfig:"TEMPLECONNECT_APP_ENV" required:"true"`
	Port         string `envconfig:"TEMPLECONNECT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TEMPLECONNECT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TEMPLECONNECT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TEMPLECONNECT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TEMPLECONNECT_DB_DSN"`
	Driver string `envconfig:"TEMPLECONNECT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TEMPLECONNECT_DB_HOST"`
	Port     int    `envconfig:"TEMPLECONNECT_DB_PORT" default:"5432"`
	User     string `envconfig:"TEMPLECONNECT_DB_USER"`
	Password string `envconfig:"TEMPLECONNECT_DB_PASSWORD"`
	Name     string `envconfig:"TEMPLECONNECT_DB_NAME"`
	SSLMode  string `envconfig:"TEMPLECONNECT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEMPLECONNECT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEMPLECONNECT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEMPLECONNECT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEMPLECONNECT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TEMPLECONNECT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TEMPLECONNECT_REDIS_ADDR"`
	Password     string        `envconfig:"TEMPLECONNECT_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEMPLECONNECT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEMPLECONNECT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEMPLECONNECT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEMPLECONNECT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEMPLECONNECT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEMPLECONNECT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TEMPLECONNECT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TEMPLECONNECT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TEMPLECONNECT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TEMPLECONNECT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TEMPLECONNECT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TEMPLECONNECT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TEMPLECONNECT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TEMPLECONNECT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TEMPLECONNECT_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TEMPLECONNECT_AUTO_MIGRATE" default:"false"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TEMPLECONNECT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TEMPLECONNECT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TEMPLECONNECT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TEMPLECONNECT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TEMPLECONNECT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TEMPLECONNECT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// LedgerConfig carries the money rules for vendor balances: the withdrawal
// floor and the platform's cut of each order, frozen at placement time.
type LedgerConfig struct {
	MinWithdrawalAmount string `envconfig:"TEMPLECONNECT_LEDGER_MIN_WITHDRAWAL" default:"500.00"`
	CommissionRate      string `envconfig:"TEMPLECONNECT_LEDGER_COMMISSION_RATE" default:"0.10"`
}

type ChatConfig struct {
	SendBuffer     int           `envconfig:"TEMPLECONNECT_CHAT_SEND_BUFFER" default:"16"`
	WriteWait      time.Duration `envconfig:"TEMPLECONNECT_CHAT_WRITE_WAIT" default:"10s"`
	PongWait       time.Duration `envconfig:"TEMPLECONNECT_CHAT_PONG_WAIT" default:"60s"`
	MaxMessageSize int64         `envconfig:"TEMPLECONNECT_CHAT_MAX_MESSAGE_BYTES" default:"4096"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TEMPLECONNECT_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"TEMPLECONNECT_PUBSUB_DOMAIN_TOPIC" default:"tc-domain-events"`
	DomainSubscription string `envconfig:"TEMPLECONNECT_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TEMPLECONNECT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TEMPLECONNECT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TEMPLECONNECT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// MailerConfig points at the serverless email dispatch function.
type MailerConfig struct {
	EndpointURL string        `envconfig:"TEMPLECONNECT_MAILER_ENDPOINT_URL"`
	APIKey      string        `envconfig:"TEMPLECONNECT_MAILER_API_KEY"`
	DefaultFrom string        `envconfig:"TEMPLECONNECT_MAILER_FROM_EMAIL" default:"no-reply@templeconnect.in"`
	Timeout     time.Duration `envconfig:"TEMPLECONNECT_MAILER_TIMEOUT" default:"10s"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"TEMPLECONNECT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"TEMPLECONNECT_DB_HOST": db.Host,
		"TEMPLECONNECT_DB_USER": db.User,
		"TEMPLECONNECT_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either TEMPLECONNECT_DB_DSN or %s are required", strings.Join(missing, ", "))
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
