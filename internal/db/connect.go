package db

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/zulandar/campaignyard/internal/config"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL-compatible DSN for connecting to a Dolt database. An
// empty database selects none, for CREATE DATABASE operations.
func DSN(user, host string, port int, database string) string {
	c := mysql.NewConfig()
	c.User = user
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", host, port)
	c.DBName = database
	c.ParseTime = true
	return c.FormatDSN()
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
}

// Open connects to the store selected by cfg: a sqlite file or a Dolt
// server speaking the MySQL protocol.
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(cfg.Path)
	case config.DriverMySQL:
		return Connect(cfg.User, cfg.Host, cfg.Port, cfg.Database)
	}
	return nil, fmt.Errorf("db: unknown driver %q", cfg.Driver)
}

// OpenSQLite opens (creating if needed) a sqlite database file. ":memory:"
// gives a private in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	// sqlite serialises writers anyway, and each extra connection to
	// ":memory:" would see its own empty database.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Connect opens a GORM connection to a Dolt database.
func Connect(user, host string, port int, database string) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(DSN(user, host, port, database)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", host, port, database, err)
	}
	return db, nil
}

// ConnectAdmin opens a GORM connection to the Dolt server without selecting
// a specific database, used for CREATE DATABASE operations.
func ConnectAdmin(user, host string, port int) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(DSN(user, host, port, "")), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", host, port, err)
	}
	return db, nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", name, err)
	}
	return nil
}

// DropDatabase drops the named database if it exists.
func DropDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: drop database %s: %w", name, err)
	}
	return nil
}

// Init prepares the configured store: for Dolt the database is created
// first, then every table is migrated.
func Init(cfg config.StorageConfig) (*gorm.DB, error) {
	if cfg.Driver == config.DriverMySQL {
		admin, err := ConnectAdmin(cfg.User, cfg.Host, cfg.Port)
		if err != nil {
			return nil, err
		}
		err = CreateDatabase(admin, cfg.Database)
		if sqlDB, dbErr := admin.DB(); dbErr == nil {
			sqlDB.Close()
		}
		if err != nil {
			return nil, err
		}
	}
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
