package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/entities"
	"github.com/mrlokans/ebooklib/internal/logging"
)

var defaultCategories = []string{
	"Fiction",
	"Non-fiction",
	"Science",
	"History",
	"Philosophy",
	"Programming",
	"Mathematics",
	"Poetry",
	"Children",
	"Biography",
}

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the configured driver, migrates the schema and seeds categories.
func NewDatabase(cfg config.Database) (*Database, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver != config.DatabaseDriverPostgres {
		// SQLite allows a single writer; serialise through one connection.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Category{},
		&entities.Ebook{},
		&entities.Favorite{},
		&entities.ActivityLog{},
		&entities.Review{},
		&entities.AuditEntry{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedCategories(); err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	logging.WithFields(logging.Fields{
		"driver": driverName(cfg.Driver),
	}).Info("database initialized")

	return database, nil
}

func driverName(d config.DatabaseDriver) string {
	if d == "" {
		return string(config.DatabaseDriverSQLite)
	}
	return string(d)
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DatabaseDriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("DATABASE_DSN is required for the postgres driver")
		}
		return postgres.Open(cfg.DSN), nil
	case config.DatabaseDriverSQLite, "":
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) seedCategories() error {
	for _, name := range defaultCategories {
		category := entities.Category{Name: name}
		if err := d.DB.Where("name = ?", name).FirstOrCreate(&category).Error; err != nil {
			return fmt.Errorf("failed to create category %s: %w", name, err)
		}
	}
	return nil
}
