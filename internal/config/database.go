package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the notification audit database, nil when disabled
var DB *gorm.DB

// ErrDatabaseDisabled is reported by HealthCheck when no audit database is configured
var ErrDatabaseDisabled = errors.New("audit database disabled")

const (
	connectAttempts = 3
	connectBackoff  = 2 * time.Second
)

// DSN returns the MySQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&timeout=5s",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// ConnectDatabase opens the notification audit database.
// It returns (nil, nil) when AUDIT_DB_ENABLED is off; the console then keeps
// the log in memory.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	if !cfg.Database.Enabled {
		log.Println("⚠️ Audit database disabled, notification log kept in memory")
		return nil, nil
	}

	level := logger.Error
	if cfg.IsDev() {
		level = logger.Warn
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = openAudit(cfg.Database.DSN(), level)
		if err == nil {
			break
		}
		log.Printf("⚠️ Audit database not ready (attempt %d/%d): %v", attempt, connectAttempts, err)
		if attempt < connectAttempts {
			time.Sleep(time.Duration(attempt) * connectBackoff)
		}
	}
	if err != nil {
		return nil, err
	}

	DB = db
	log.Printf("✅ Audit database connected [%s:%s/%s]", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	return db, nil
}

func openAudit(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// CloseDatabase closes the audit database if open
func CloseDatabase() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck pings the audit database
func HealthCheck() error {
	if DB == nil {
		return ErrDatabaseDisabled
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
