package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/gympoints/models"
)

var db *gorm.DB

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{&models.Member{}, &models.Prize{}, &models.CheckIn{}, &models.Redemption{}}
}

// OpenDatabase connects to the configured driver without touching package state.
func OpenDatabase(c AppConfig) (*gorm.DB, error) {
	// Configure GORM logger: derive level from app LogLevel and raise slow-sql threshold to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(c.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormCfg := &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}

	switch c.DBDriver {
	case "mysql":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				c.DBUser,
				c.DBPassword,
				c.DBHost,
				c.DBPort,
				c.DBName,
			)
		}
		conn, err := gorm.Open(mysql.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		return conn, nil
	case "sqlite":
		dsn := c.DatabaseURI
		if dsn == "" {
			if dir := filepath.Dir(c.SQLitePath); dir != "" {
				_ = os.MkdirAll(dir, 0o755)
			}
			dsn = c.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
		conn, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		// single writer; sqlite serializes anyway and this avoids SQLITE_BUSY inside transactions
		sqlDB.SetMaxOpenConns(1)
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

// Migrate creates missing tables and columns for all models.
func Migrate(conn *gorm.DB) error {
	for _, model := range Models() {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto migration failed for %T: %w", model, err)
		}
	}
	return nil
}

// SeedPrizes inserts the default catalogue when the prizes table is empty.
func SeedPrizes(conn *gorm.DB) (int, error) {
	var count int64
	if err := conn.Model(&models.Prize{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	prizes := models.DefaultPrizes()
	if err := conn.Create(&prizes).Error; err != nil {
		return 0, err
	}
	return len(prizes), nil
}

// InitDatabase opens, migrates and caches the process-wide connection. Fails fast on error.
func InitDatabase() *gorm.DB {
	if db != nil {
		return db
	}
	c := Get()
	conn, err := OpenDatabase(c)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := Migrate(conn); err != nil {
		log.Fatalf("%v", err)
	}
	if c.SeedPrizes {
		if n, err := SeedPrizes(conn); err != nil {
			log.Printf("seed prizes failed: %v", err)
		} else if n > 0 {
			log.Printf("seeded %d prizes", n)
		}
	}
	db = conn
	return db
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
