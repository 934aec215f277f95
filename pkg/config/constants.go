package config

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "MISRAK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "MISRAK_DB_DSN"
	EnvDBHost = "MISRAK_DB_HOST"
	EnvDBUser = "MISRAK_DB_USER"
	EnvDBName = "MISRAK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
