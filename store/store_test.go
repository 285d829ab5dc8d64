package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"campus-canteen/events"
	"campus-canteen/models"
)

type recorder struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (r *recorder) Publish(_ context.Context, e events.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func newTestStore(t *testing.T) (*Store, *recorder) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	rec := &recorder{}
	s := New(db, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s, rec
}

func seedShop(t *testing.T, s *Store, name string) *models.Shop {
	t.Helper()
	shop := &models.Shop{Name: name, IsOpen: true}
	if err := s.CreateShop(context.Background(), shop); err != nil {
		t.Fatalf("create shop: %v", err)
	}
	return shop
}

func seedFood(t *testing.T, s *Store, shopID uint, name string, price int64) *models.FoodItem {
	t.Helper()
	item := &models.FoodItem{ShopID: shopID, Name: name, Price: decimal.NewFromInt(price), IsAvailable: true}
	if err := s.CreateFoodItem(context.Background(), item); err != nil {
		t.Fatalf("create food item: %v", err)
	}
	return item
}

func placeOrder(t *testing.T, s *Store, shopID uint, lines ...CartLine) *models.Order {
	t.Helper()
	order, err := s.CreateOrder(context.Background(), CreateOrderInput{
		UserID:   1,
		UserName: "Asha",
		ShopID:   shopID,
		Lines:    lines,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func advance(t *testing.T, s *Store, id string, statuses ...models.OrderStatus) {
	t.Helper()
	for _, st := range statuses {
		if _, err := s.UpdateOrderStatus(context.Background(), id, st, 99); err != nil {
			t.Fatalf("advance %s to %s: %v", id, st, err)
		}
	}
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
