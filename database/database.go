package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pos/config"
	"pos/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured local store without migrating it
func Open(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	if cfg.Server.Mode == "debug" {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	switch cfg.Database.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.DBName,
			cfg.Database.Charset,
		)
		db, err := gorm.Open(mysql.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		return db, nil

	case "", "sqlite":
		if dir := filepath.Dir(cfg.Database.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dsn := cfg.Database.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		db, err := gorm.Open(sqlite.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Database.Path, err)
		}
		// one shared handle, as the Express server did
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// Migrate creates or updates the local schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Category{},
		&models.Item{},
		&models.ItemVariant{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.AdminPin{},
	)
}

// Init opens, migrates and seeds the local store and sets DB
func Init(cfg *config.Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	DB = db

	if cfg.Backoffice.DefaultPin != "" {
		created, err := EnsurePin(db, cfg.Backoffice.DefaultPin)
		if err != nil {
			return fmt.Errorf("seed default pin: %w", err)
		}
		if created {
			zap.L().Info("default backoffice PIN initialised")
		}
	}

	zap.L().Info("database ready", zap.String("driver", Driver(db)))
	return nil
}

// ErrNoPin no PIN row exists yet
var ErrNoPin = errors.New("no PIN configured")

// CurrentPin returns the newest PIN row
func CurrentPin(db *gorm.DB) (*models.AdminPin, error) {
	var pin models.AdminPin
	err := db.Order("created_at DESC").Order("id DESC").First(&pin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPin
	}
	if err != nil {
		return nil, err
	}
	return &pin, nil
}

// AppendPin stores pin (hashed) as the new active PIN
func AppendPin(db *gorm.DB, pin string) error {
	hashed, err := models.HashPin(pin)
	if err != nil {
		return err
	}
	return db.Create(&models.AdminPin{Pin: hashed}).Error
}

// EnsurePin stores pin only when the PIN log is empty
func EnsurePin(db *gorm.DB, pin string) (bool, error) {
	var count int64
	if err := db.Model(&models.AdminPin{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := AppendPin(db, pin); err != nil {
		return false, err
	}
	return true, nil
}
