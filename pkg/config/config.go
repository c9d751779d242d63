package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "FABTRACK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Scheduling   SchedulingConfig
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
	Env          string `envconfig:"FABTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"FABTRACK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FABTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FABTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FABTRACK_DB_DSN"`
	Driver string `envconfig:"FABTRACK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FABTRACK_DB_HOST"`
	Port     int    `envconfig:"FABTRACK_DB_PORT" default:"5432"`
	User     string `envconfig:"FABTRACK_DB_USER"`
	Password string `envconfig:"FABTRACK_DB_PASSWORD"`
	Name     string `envconfig:"FABTRACK_DB_NAME"`
	SSLMode  string `envconfig:"FABTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FABTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FABTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FABTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FABTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FABTRACK_REDIS_URL"`
	Address      string        `envconfig:"FABTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"FABTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FABTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FABTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FABTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FABTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FABTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FABTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SchedulingConfig carries the tunables of the production queue engine.
type SchedulingConfig struct {
	MaxHoursPerDay       int           `envconfig:"FABTRACK_SCHED_MAX_HOURS_PER_DAY" default:"8"`
	ThicknessToleranceMM string        `envconfig:"FABTRACK_SCHED_THICKNESS_TOLERANCE_MM" default:"0.3"`
	POPDeadlineDays      int           `envconfig:"FABTRACK_SCHED_POP_DEADLINE_DAYS" default:"3"`
	CapacityWarnRatio    float64       `envconfig:"FABTRACK_SCHED_CAPACITY_WARN_RATIO" default:"0.90"`
	AutoScheduleInterval time.Duration `envconfig:"FABTRACK_SCHED_AUTO_INTERVAL" default:"15m"`
	UpcomingWindowDays   int           `envconfig:"FABTRACK_SCHED_UPCOMING_WINDOW_DAYS" default:"7"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FABTRACK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FABTRACK_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, "sqlite") {
		db.DSN = "file:fabtrack.db?cache=shared"
		return nil
	}

	missing := []string{}
	for _, pair := range []struct {
		env   string
		value string
	}{
		{"FABTRACK_DB_HOST", db.Host},
		{"FABTRACK_DB_USER", db.User},
		{"FABTRACK_DB_NAME", db.Name},
	} {
		if pair.value == "" {
			missing = append(missing, pair.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either FABTRACK_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
