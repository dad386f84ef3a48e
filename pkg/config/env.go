package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvLogLevel           = "STOREFRONT_LOG_LEVEL"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvDBDriver           = "STOREFRONT_DB_DRIVER"
	EnvDBHost             = "STOREFRONT_DB_HOST"
	EnvDBUser             = "STOREFRONT_DB_USER"
	EnvDBName             = "STOREFRONT_DB_NAME"
	EnvDBPassword         = "STOREFRONT_DB_PASSWORD"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvJWTSecret          = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer          = "STOREFRONT_JWT_ISSUER"
	EnvOrdersDeliveryDays = "STOREFRONT_ORDERS_DEFAULT_DELIVERY_DAYS"
	EnvStripeAPIKey       = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret       = "STOREFRONT_STRIPE_SECRET"
	EnvStripeCurrency     = "STOREFRONT_STRIPE_CURRENCY"
	EnvPubSubOrdersTopic  = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvGCPProjectID       = "STOREFRONT_GCP_PROJECT_ID"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
