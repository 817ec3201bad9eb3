package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "SOKOYETU"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SOKOYETU_DB_DSN"
	EnvDBHost = "SOKOYETU_DB_HOST"
	EnvDBUser = "SOKOYETU_DB_USER"
	EnvDBName = "SOKOYETU_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Settlement   SettlementConfig
	Withdrawals  WithdrawalsConfig
	Credit       CreditConfig
	Fees         FeesConfig
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
	if err := cfg.Fees.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOKOYETU_APP_ENV" required:"true"`
	Port         string `envconfig:"SOKOYETU_APP_PORT" default:"8090"`
	LogLevel     string `envconfig:"SOKOYETU_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOKOYETU_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOKOYETU_SERVICE_KIND" default:"settlement-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOKOYETU_DB_DSN"`
	Driver string `envconfig:"SOKOYETU_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOKOYETU_DB_HOST"`
	LegacyPort     int    `envconfig:"SOKOYETU_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOKOYETU_DB_USER"`
	LegacyPassword string `envconfig:"SOKOYETU_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOKOYETU_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOKOYETU_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOKOYETU_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOKOYETU_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOKOYETU_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOKOYETU_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOKOYETU_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOKOYETU_REDIS_ADDR"`
	Password     string        `envconfig:"SOKOYETU_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOKOYETU_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOKOYETU_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOKOYETU_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOKOYETU_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOKOYETU_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOKOYETU_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SettlementConfig struct {
	// Interval is how often the worker wakes up to run registered jobs.
	Interval time.Duration `envconfig:"SOKOYETU_SETTLEMENT_INTERVAL" default:"24h"`
	// PeriodDays is the size of the settlement window scanned each run.
	PeriodDays int `envconfig:"SOKOYETU_SETTLEMENT_PERIOD_DAYS" default:"7"`
}

// Period returns the settlement window as a duration.
func (s SettlementConfig) Period() time.Duration {
	days := s.PeriodDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

type WithdrawalsConfig struct {
	MinimumAmount decimal.Decimal `envconfig:"SOKOYETU_WITHDRAWALS_MINIMUM" default:"100.00"`
}

type CreditConfig struct {
	DefaultLimit decimal.Decimal `envconfig:"SOKOYETU_CREDIT_DEFAULT_LIMIT" default:"5000.00"`
}

type FeesConfig struct {
	GatewayFlat    decimal.Decimal `envconfig:"SOKOYETU_FEES_GATEWAY_FLAT" default:"2.00"`
	GatewayPercent decimal.Decimal `envconfig:"SOKOYETU_FEES_GATEWAY_PERCENT" default:"0"`
}

func (f FeesConfig) validate() error {
	if f.GatewayFlat.IsNegative() {
		return fmt.Errorf("gateway flat fee must not be negative")
	}
	if f.GatewayPercent.IsNegative() || f.GatewayPercent.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("gateway percent fee must be between 0 and 1")
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SOKOYETU_AUTO_MIGRATE" default:"false"`
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
