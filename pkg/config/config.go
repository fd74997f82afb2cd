package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "handyfix"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Fees          FeesConfig
	Uploads       UploadsConfig
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
	Env          string `envconfig:"HANDYFIX_APP_ENV" default:"dev"`
	Port         string `envconfig:"HANDYFIX_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"HANDYFIX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HANDYFIX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HANDYFIX_DB_DSN"`
	Driver string `envconfig:"HANDYFIX_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"HANDYFIX_DB_HOST"`
	Port     int    `envconfig:"HANDYFIX_DB_PORT" default:"5432"`
	User     string `envconfig:"HANDYFIX_DB_USER"`
	Password string `envconfig:"HANDYFIX_DB_PASSWORD"`
	Name     string `envconfig:"HANDYFIX_DB_NAME"`
	SSLMode  string `envconfig:"HANDYFIX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HANDYFIX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HANDYFIX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HANDYFIX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HANDYFIX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		// SQLite deployments and tests provide their own datasource.
		return nil
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"HANDYFIX_REDIS_URL"`
	Address      string        `envconfig:"HANDYFIX_REDIS_ADDR"`
	Password     string        `envconfig:"HANDYFIX_REDIS_PASSWORD"`
	DB           int           `envconfig:"HANDYFIX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HANDYFIX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HANDYFIX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HANDYFIX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HANDYFIX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HANDYFIX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HANDYFIX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HANDYFIX_JWT_ISSUER" default:"handyfix"`
	ExpirationMinutes int    `envconfig:"HANDYFIX_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HANDYFIX_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HANDYFIX_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HANDYFIX_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HANDYFIX_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HANDYFIX_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"HANDYFIX_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"HANDYFIX_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"HANDYFIX_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"HANDYFIX_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"HANDYFIX_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"HANDYFIX_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HANDYFIX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HANDYFIX_AUTO_MIGRATE" default:"false"`
}

// FeesConfig holds the escrow percentages applied at order start and completion.
type FeesConfig struct {
	PlatformFeePercent int    `envconfig:"HANDYFIX_PLATFORM_FEE_PERCENT" default:"10"`
	CommissionPercent  int    `envconfig:"HANDYFIX_COMMISSION_PERCENT" default:"10"`
	Currency           string `envconfig:"HANDYFIX_WALLET_CURRENCY" default:"NGN"`
}

type UploadsConfig struct {
	Dir           string `envconfig:"HANDYFIX_UPLOADS_DIR" default:"uploads"`
	PublicBaseURL string `envconfig:"HANDYFIX_UPLOADS_PUBLIC_BASE_URL" default:"/uploads"`
	MaxBytes      int64  `envconfig:"HANDYFIX_UPLOADS_MAX_BYTES" default:"10485760"`
}
