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
	JWT          JWTConfig
	Payment      PaymentConfig
	Audit        AuditConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SWANSTUDIOS_APP_ENV" required:"true"`
	Port         string `envconfig:"SWANSTUDIOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWANSTUDIOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWANSTUDIOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SWANSTUDIOS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SWANSTUDIOS_DB_DSN"`
	Driver string `envconfig:"SWANSTUDIOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWANSTUDIOS_DB_HOST"`
	LegacyPort     int    `envconfig:"SWANSTUDIOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWANSTUDIOS_DB_USER"`
	LegacyPassword string `envconfig:"SWANSTUDIOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWANSTUDIOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWANSTUDIOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWANSTUDIOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWANSTUDIOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWANSTUDIOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWANSTUDIOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits for the cart row lock
	// before the caller gets a retryable locked error.
	LockTimeout time.Duration `envconfig:"SWANSTUDIOS_DB_LOCK_TIMEOUT" default:"3s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWANSTUDIOS_REDIS_URL"`
	Address      string        `envconfig:"SWANSTUDIOS_REDIS_ADDR"`
	Password     string        `envconfig:"SWANSTUDIOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWANSTUDIOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWANSTUDIOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWANSTUDIOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWANSTUDIOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWANSTUDIOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWANSTUDIOS_REDIS_WRITE_TIMEOUT" default:"5s"`

	CatalogCacheTTL time.Duration `envconfig:"SWANSTUDIOS_REDIS_CATALOG_CACHE_TTL" default:"5m"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SWANSTUDIOS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SWANSTUDIOS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SWANSTUDIOS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PaymentConfig describes the external gateway boundary. The gateway charges
// integer amounts in the smallest currency unit and refuses anything below
// MinChargeCents.
type PaymentConfig struct {
	Currency       string `envconfig:"SWANSTUDIOS_PAYMENT_CURRENCY" default:"USD"`
	MinChargeCents int64  `envconfig:"SWANSTUDIOS_PAYMENT_MIN_CHARGE_CENTS" default:"50"`
}

type AuditConfig struct {
	ScanInterval time.Duration `envconfig:"SWANSTUDIOS_AUDIT_SCAN_INTERVAL" default:"1h"`
	DriftEpsilon string        `envconfig:"SWANSTUDIOS_AUDIT_DRIFT_EPSILON" default:"0.01"`
	ScanLimit    int           `envconfig:"SWANSTUDIOS_AUDIT_SCAN_LIMIT" default:"500"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SWANSTUDIOS_AUTO_MIGRATE" default:"false"`
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
