package config

const (
	EnvPrefix = "ESTORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv   = "ESTORE_APP_ENV"
	EnvPort     = "ESTORE_APP_PORT"
	EnvDBDSN    = "ESTORE_DB_DSN"
	EnvDBDriver = "ESTORE_DB_DRIVER"
	EnvDBHost   = "ESTORE_DB_HOST"
	EnvDBUser   = "ESTORE_DB_USER"
	EnvDBName   = "ESTORE_DB_NAME"

	EnvRedisURL     = "ESTORE_REDIS_URL"
	EnvGCPProjectID = "ESTORE_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic     = "ESTORE_PUBSUB_ORDERS_TOPIC"
	EnvCartExpiration        = "ESTORE_CART_EXPIRATION"
	EnvRateLimitOrdersPerIP  = "ESTORE_RATE_LIMIT_ORDERS_PER_IP"
	EnvAdminAPIKey           = "ESTORE_ADMIN_API_KEY"
	EnvNotificationSubscribe = "ESTORE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
