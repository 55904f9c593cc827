// Package db opens the gorm connection for the configured engine and migrates the schema.
package db

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/scopeguard/scopeguard/internal/config"
	"github.com/scopeguard/scopeguard/internal/db/dsn"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

const connMaxLifetime = 30 * time.Minute

// Open connects to the database described by cfg.DB.
//
// Driver errors are translated into gorm sentinels (gorm.ErrDuplicatedKey,
// gorm.ErrForeignKeyViolated) so callers can classify them engine independently.
func Open(cfg *config.Config) (*gorm.DB, error) {
	source, err := dsn.Create(cfg)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector

	switch cfg.DB.Engine {
	case config.EngineMySQL:
		dialector = mysql.Open(source)
	case config.EnginePostgres:
		dialector = postgres.Open(source)
	default:
		dialector = sqlite.Open(source)
	}

	logLevel := gormlogger.Silent
	if cfg.DevMode {
		logLevel = gormlogger.Info
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect %s database", cfg.DB.Engine)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	switch {
	case cfg.DB.Engine == config.EngineSQLite || cfg.DB.Engine == "":
		// sqlite serializes writers, a single connection keeps in-memory databases shared
		sqlDB.SetMaxOpenConns(1)
	case cfg.DB.MaxConns > 0:
		sqlDB.SetMaxOpenConns(cfg.DB.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.DB.MaxConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	default:
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}

	return gdb, nil
}

// Migrate creates or updates every table of the engine.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return ErrDBNil
	}

	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	return nil
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}

	return sqlDB.Close() //nolint:wrapcheck
}
