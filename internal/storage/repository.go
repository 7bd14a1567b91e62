package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Makoshaa/kia/internal/config"
	"github.com/Makoshaa/kia/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Repository is the relational store for users, dashboards and leads.
type Repository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open connects with the configured driver (sqlite or postgres).
func Open(cfg *config.Config, log *logrus.Logger) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite", "sqlite3", "":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	level := logger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// every connection to :memory: would otherwise be its own database
	if strings.Contains(cfg.DatabaseURL, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.DatabaseDriver,
	}).Info("Database connected")

	return NewRepository(db, log), nil
}

func NewRepository(db *gorm.DB, logger *logrus.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Migrate creates or updates the users, dashboards and leads tables.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&models.User{}, &models.Dashboard{}, &models.LeadRow{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	r.logger.Info("Database schema migrated")
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
