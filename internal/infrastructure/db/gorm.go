package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/domain/outbox"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Option func(*gorm.Config)

// WithLogger routes gorm's slow query and error output through zap.
func WithLogger(l *zap.Logger, level logger.LogLevel) Option {
	return func(c *gorm.Config) {
		c.Logger = logger.New(zap.NewStdLog(l.Named("gorm")), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		})
	}
}

// Open picks the dialector for driver; dsn is a MySQL DSN or a sqlite file path.
func Open(driver, dsn string, opts ...Option) (*gorm.DB, error) {
	switch driver {
	case DriverMySQL, "":
		return OpenGormWithDialector(mysql.Open(dsn), opts...)
	case DriverSQLite:
		return OpenSQLite(dsn, opts...)
	}
	return nil, fmt.Errorf("unknown db driver %q", driver)
}

func OpenGorm(dsn string, opts ...Option) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn), opts...)
}

// OpenSQLite opens a file-backed database for local runs. A single connection keeps
// writers serialized, which sqlite needs anyway.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	db, err := OpenGormWithDialector(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), opts...)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func OpenGormWithDialector(dial gorm.Dialector, opts ...Option) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(cfg)
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	zap.L().Info("gorm: connected", zap.String("dialect", dial.Name()))
	return db, nil
}

// Migrate creates or updates the loan, outbox and receipt tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&loan.Loan{}, &outbox.Task{}, &outbox.Receipt{})
}
