package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so the
// prefix only matters for unkeyed fields.
const EnvPrefix = "WAREHOUSE"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "WAREHOUSE_APP_ENV"
	EnvPort     = "WAREHOUSE_APP_PORT"
	EnvLogLevel = "WAREHOUSE_LOG_LEVEL"
	EnvCORS     = "WAREHOUSE_OPS_CORS_ORIGINS"

	EnvDBDSN  = "WAREHOUSE_DB_DSN"
	EnvDBHost = "WAREHOUSE_DB_HOST"
	EnvDBPort = "WAREHOUSE_DB_PORT"
	EnvDBUser = "WAREHOUSE_DB_USER"
	EnvDBPass = "WAREHOUSE_DB_PASSWORD"
	EnvDBName = "WAREHOUSE_DB_NAME"

	EnvRedisURL = "WAREHOUSE_REDIS_URL"

	EnvUseSQLite      = "WAREHOUSE_USE_SQLITE"
	EnvAutoMigrate    = "WAREHOUSE_AUTO_MIGRATE"
	EnvRefreshOnStart = "WAREHOUSE_REFRESH_ON_START"

	EnvLowStockThreshold = "WAREHOUSE_LOW_STOCK_THRESHOLD"
	EnvProductCacheTTL   = "WAREHOUSE_PRODUCT_CACHE_TTL"
	EnvAuditInterval     = "WAREHOUSE_AUDIT_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
