package config

const (
	EnvPrefix = "MEDIADESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MEDIADESK_DB_DSN"
	EnvDBHost = "MEDIADESK_DB_HOST"
	EnvDBUser = "MEDIADESK_DB_USER"
	EnvDBName = "MEDIADESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
