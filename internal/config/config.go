package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/usecase/sideeffect"
)

type Outbox struct {
	PollInterval  time.Duration `env:"OUTBOX_POLL_INTERVAL"   envDefault:"2s"`
	BatchSize     int           `env:"OUTBOX_BATCH_SIZE"      envDefault:"20"`
	MaxAttempts   int           `env:"OUTBOX_MAX_ATTEMPTS"    envDefault:"8"`
	TaskTimeout   time.Duration `env:"OUTBOX_TASK_TIMEOUT"    envDefault:"10s"`
	LeaseTTL      time.Duration `env:"OUTBOX_LEASE_TTL"       envDefault:"30s"`
	RetryMaxDelay time.Duration `env:"OUTBOX_RETRY_MAX_DELAY" envDefault:"5m"`
}

type Config struct {
	AppEnv    string `env:"APP_ENV"    envDefault:"development"`
	AppPort   string `env:"APP_PORT"   envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	DBDriver   string `env:"DB_DRIVER"   envDefault:"mysql"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"loanflow.db"`

	MySQLHost string `env:"MYSQL_HOST" envDefault:"mysql"`
	MySQLPort string `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLDB   string `env:"MYSQL_DB"   envDefault:"loanflow"`
	MySQLUser string `env:"MYSQL_USER" envDefault:"loanflow"`
	MySQLPass string `env:"MYSQL_PASS" envDefault:"loanflow"`

	// empty disables the idempotency middleware
	RedisAddr    string `env:"REDIS_ADDR"`
	RedisPass    string `env:"REDIS_PASSWORD"`
	RedisDB      int    `env:"REDIS_DB"                envDefault:"0"`
	IdempTTLSecs int    `env:"IDEMPOTENCY_TTL_SECONDS" envDefault:"300"`

	// empty logs side effects instead of publishing them
	KafkaBrokers           []string `env:"KAFKA_BROKERS"            envSeparator:","`
	KafkaNotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"loan.notifications"`
	KafkaMirrorTopic       string   `env:"KAFKA_MIRROR_TOPIC"       envDefault:"loan.mirror"`

	FineDailyRate decimal.Decimal `env:"FINE_DAILY_RATE" envDefault:"100000"`
	FineTimezone  string          `env:"FINE_TIMEZONE"   envDefault:"UTC"`

	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`

	Outbox Outbox
}

// Load reads .env when present, then the process environment, which wins.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (mysql|sqlite)", c.DBDriver)
	}
	if !c.FineDailyRate.IsPositive() {
		return fmt.Errorf("FINE_DAILY_RATE must be positive, got %s", c.FineDailyRate)
	}
	if _, err := time.LoadLocation(c.FineTimezone); err != nil {
		return fmt.Errorf("invalid FINE_TIMEZONE %q: %w", c.FineTimezone, err)
	}
	if c.Outbox.MaxAttempts < 1 {
		return errors.New("OUTBOX_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool { return strings.EqualFold(c.AppEnv, "production") }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME; loc=UTC keeps fine day boundaries stable
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN is what the db opener expects for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.MySQLDSN()
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) FinePolicy() loan.FinePolicy {
	loc, err := time.LoadLocation(c.FineTimezone)
	if err != nil {
		loc = time.UTC
	}
	return loan.FinePolicy{DailyRate: c.FineDailyRate, Location: loc}
}

func (c *Config) WorkerConfig() sideeffect.Config {
	return sideeffect.Config{
		PollInterval:  c.Outbox.PollInterval,
		BatchSize:     c.Outbox.BatchSize,
		MaxAttempts:   c.Outbox.MaxAttempts,
		TaskTimeout:   c.Outbox.TaskTimeout,
		LeaseTTL:      c.Outbox.LeaseTTL,
		RetryMaxDelay: c.Outbox.RetryMaxDelay,
	}
}
