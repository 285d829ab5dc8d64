// Package store owns every piece of persisted canteen state. Orders, food
// items, shops and users are only mutated through the methods here; readers
// get detached snapshots.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"campus-canteen/config"
	"campus-canteen/events"
	"campus-canteen/models"
	"campus-canteen/utils"
)

type Store struct {
	db        *gorm.DB
	publisher events.Publisher
	log       *slog.Logger

	now      func() time.Time
	newToken func() (string, error)

	// serializes token issuance so two checkouts at one shop cannot both
	// observe the same free token
	createMu sync.Mutex
}

// Open connects to the database named by cfg.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.URI)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.URI)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

func New(db *gorm.DB, publisher events.Publisher, log *slog.Logger) *Store {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Store{
		db:        db,
		publisher: publisher,
		log:       log,
		now:       time.Now,
		newToken:  randomPickupToken,
	}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Shop{},
		&models.FoodItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusChange{},
	)
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// publish hands event to the configured sinks. Failures are logged only; the
// state change that produced event is already committed.
func (s *Store) publish(ctx context.Context, event events.OrderEvent) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn("order event not delivered",
			"action", utils.ActionEventPublishFailed,
			"kind", event.Kind,
			"order_id", event.OrderID,
			"error", err,
		)
	}
}
