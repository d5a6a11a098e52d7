// Package database opens the gorm connection backing run history.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLitePrefix selects the sqlite driver; the rest of the URL is the DSN.
const SQLitePrefix = "sqlite://"

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

type DB struct {
	*gorm.DB
	Driver string
}

// PoolSettings apply to postgres only; sqlite always runs on one connection.
type PoolSettings struct {
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
}

var DefaultPool = PoolSettings{MaxIdle: 5, MaxOpen: 20, MaxLifetime: time.Hour}

// NewConnection opens url with DefaultPool. Development mode logs slow and
// failed queries at warn instead of error.
func NewConnection(url string, isDevelopment bool) (*DB, error) {
	return Open(url, isDevelopment, DefaultPool)
}

func Open(url string, isDevelopment bool, pool PoolSettings) (*DB, error) {
	level := gormlogger.Error
	if isDevelopment {
		level = gormlogger.Warn
	}

	dialector, driver := dialectorFor(url)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get %s handle: %w", driver, err)
	}
	switch driver {
	case driverSQLite:
		// an in-memory database lives only as long as its connection
		sqlDB.SetMaxOpenConns(1)
	default:
		sqlDB.SetMaxIdleConns(pool.MaxIdle)
		sqlDB.SetMaxOpenConns(pool.MaxOpen)
		sqlDB.SetConnMaxLifetime(pool.MaxLifetime)
	}

	db := &DB{DB: gdb, Driver: driver}
	if err := db.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	logrus.WithField("driver", driver).Info("Run history database connected")
	return db, nil
}

func dialectorFor(url string) (gorm.Dialector, string) {
	if dsn, ok := strings.CutPrefix(url, SQLitePrefix); ok {
		return sqlite.Open(dsn), driverSQLite
	}
	return postgres.Open(url), driverPostgres
}

// AutoMigrate creates or updates the given model tables.
func (db *DB) AutoMigrate(models ...any) error {
	if err := db.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
