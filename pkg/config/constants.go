package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for unannotated additions.
const EnvPrefix = "swanstudios"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SWANSTUDIOS_DB_DSN"
	EnvDBHost = "SWANSTUDIOS_DB_HOST"
	EnvDBUser = "SWANSTUDIOS_DB_USER"
	EnvDBName = "SWANSTUDIOS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
