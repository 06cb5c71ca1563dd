package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Sendgrid     SendgridConfig
	Outbox       OutboxConfig
	Housekeeping HousekeepingConfig
	Admin        AdminConfig
	RateLimit    RateLimitConfig
	Metrics      MetricsConfig
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
	Env          string `envconfig:"ESTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"ESTORE_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"ESTORE_PUBLIC_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"ESTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ESTORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ESTORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ESTORE_DB_DSN"`
	Driver string `envconfig:"ESTORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ESTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"ESTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ESTORE_DB_USER"`
	LegacyPassword string `envconfig:"ESTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ESTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ESTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ESTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ESTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ESTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ESTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// TxMaxRetries bounds how often a transaction is replayed after a
	// serialization failure or deadlock.
	TxMaxRetries   uint64        `envconfig:"ESTORE_DB_TX_MAX_RETRIES" default:"3"`
	TxRetryBackoff time.Duration `envconfig:"ESTORE_DB_TX_RETRY_BACKOFF" default:"25ms"`
}

// IsSQLite reports whether the sqlite dialector should be used.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ESTORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ESTORE_REDIS_ADDR"`
	Password     string        `envconfig:"ESTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ESTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ESTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ESTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ESTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ESTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ESTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ESTORE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ESTORE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ESTORE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// GCPConfig falls back to application default credentials when neither
// credential field is set.
type GCPConfig struct {
	ProjectID              string `envconfig:"ESTORE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ESTORE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ESTORE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"ESTORE_PUBSUB_ORDERS_TOPIC" default:"estore-order-events"`
	InventoryTopic           string `envconfig:"ESTORE_PUBSUB_INVENTORY_TOPIC" default:"estore-inventory-events"`
	NotificationSubscription string `envconfig:"ESTORE_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"estore-order-notifications"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"ESTORE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"ESTORE_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"ESTORE_SENDGRID_FROM_NAME" default:"E-Store"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ESTORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ESTORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ESTORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"ESTORE_OUTBOX_RETENTION_DAYS" default:"30"`
}

type HousekeepingConfig struct {
	CartExpiration time.Duration `envconfig:"ESTORE_CART_EXPIRATION" default:"720h"`
	Interval       time.Duration `envconfig:"ESTORE_CRON_INTERVAL" default:"24h"`
	LockKey        string        `envconfig:"ESTORE_CRON_LOCK_KEY" default:"estore:cron:lock"`
	LockTTL        time.Duration `envconfig:"ESTORE_CRON_LOCK_TTL" default:"25h"`
}

type AdminConfig struct {
	APIKey string `envconfig:"ESTORE_ADMIN_API_KEY"`
}

type RateLimitConfig struct {
	OrderWindow   time.Duration `envconfig:"ESTORE_RATE_LIMIT_ORDER_WINDOW" default:"24h"`
	OrdersPerIP   int           `envconfig:"ESTORE_RATE_LIMIT_ORDERS_PER_IP" default:"2"`
	OrdersEnabled bool          `envconfig:"ESTORE_RATE_LIMIT_ORDERS_ENABLED" default:"true"`
}

// MetricsConfig is read by the background workers. The API serves /metrics
// on its own port.
type MetricsConfig struct {
	Addr string `envconfig:"ESTORE_METRICS_ADDR" default:":9464"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
