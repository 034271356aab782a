package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/flightwx/internal/config"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

// Service owns the catalog database handle.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// zapWriter routes gorm's logger through the service logger.
type zapWriter struct {
	log *logger.Logger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func Open(cfg config.StoreConfig, logg *logger.Logger) (*Service, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	serviceLog := logg.With("service", "Store", "driver", cfg.Driver)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	gormLog := gormLogger.New(
		zapWriter{log: serviceLog},
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite" {
		// A single connection keeps in-memory databases shared across goroutines.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	serviceLog.Debug("store opened")
	return &Service{db: db, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

// AutoMigrate creates or updates the tables for models.
func (s *Service) AutoMigrate(models ...interface{}) error {
	if err := s.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
