package database

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"modernc.org/sqlite"
)

// SQLiteLowerFunc is a Unicode-aware LOWER for SQLite, whose built-in LOWER
// only folds ASCII letters.
const SQLiteLowerFunc = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(SQLiteLowerFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// PoolConfig sizes the process-wide connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens a PostgreSQL connection for postgres:// URLs and an SQLite
// database (pure-Go driver) for anything else, e.g. a file name or ":memory:".
func Connect(dsn string) (*gorm.DB, error) {
	return ConnectWithPool(dsn, PoolConfig{})
}

// ConnectWithPool is Connect with explicit pool limits. The returned handle is
// meant to live for the whole process and be shared by every repository.
func ConnectWithPool(dsn string, pool PoolConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var (
		db       *gorm.DB
		err      error
		isSQLite bool
	)
	if IsPostgres(dsn) {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	} else {
		isSQLite = true
		db, err = gorm.Open(
			gormsqlite.New(gormsqlite.Config{
				DriverName: "sqlite",
				DSN:        dsn,
			}),
			gormCfg,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	// Every sqlite connection to ":memory:" is a separate database.
	if isSQLite {
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return db, nil
}

func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
