package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"campus-canteen/events"
	"campus-canteen/models"
)

func TestUpdateOrderStatusDetectsConcurrentWriter(t *testing.T) {
	s, rec := newTestStore(t)
	ctx := context.Background()
	shop := seedShop(t, s, "North")
	dosa := seedFood(t, s, shop.ID, "Dosa", 50)
	order := placeOrder(t, s, shop.ID, CartLine{dosa.ID, 1})

	// Another writer cancels the order between the read and the
	// conditional update.
	interfered := false
	err := s.db.Callback().Update().Before("gorm:update").Register("test:interfere", func(db *gorm.DB) {
		if interfered || db.Statement.Table != "orders" {
			return
		}
		interfered = true
		res := db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE orders SET status = ? WHERE id = ?", models.OrderStatusCancelled, order.ID)
		if res.Error != nil {
			db.AddError(res.Error)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPreparing, 7)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("err = %v, want ErrStatusConflict", err)
	}
	if !interfered {
		t.Fatal("interfering write never ran")
	}

	history, err := s.StatusHistory(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history = %+v, want none", history)
	}
	if len(rec.events) != 1 || rec.events[0].Kind != events.KindOrderPlaced {
		t.Errorf("events = %+v, want only the placement", rec.events)
	}

	// The interfering write shared the rolled back transaction here.
	got, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.OrderStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestUpdateOrderStatusSurvivesFailedReload(t *testing.T) {
	s, rec := newTestStore(t)
	ctx := context.Background()
	s.now = fixedClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	shop := seedShop(t, s, "North")
	dosa := seedFood(t, s, shop.ID, "Dosa", 50)
	order := placeOrder(t, s, shop.ID, CartLine{dosa.ID, 2})
	advance(t, s, order.ID, models.OrderStatusPreparing)

	failItems := false
	err := s.db.Callback().Query().After("gorm:query").Register("test:fail_items", func(db *gorm.DB) {
		if failItems && db.Statement.Table == "order_items" {
			db.AddError(errors.New("read failed"))
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	failItems = true
	res, err := s.UpdateOrderStatus(ctx, order.ID, models.OrderStatusReady, 7)
	failItems = false
	if err != nil {
		t.Fatalf("committed transition reported as failure: %v", err)
	}
	if res.Order.Status != models.OrderStatusReady || res.Previous != models.OrderStatusPreparing {
		t.Fatalf("result = %s from %s", res.Order.Status, res.Previous)
	}
	if res.Order.ID != order.ID || !res.Order.Total.Equal(order.Total) {
		t.Errorf("fallback order = %+v", res.Order)
	}

	got, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.OrderStatusReady {
		t.Errorf("stored status = %s", got.Status)
	}
	last := rec.events[len(rec.events)-1]
	if last.Kind != events.KindOrderStatusChanged || last.NewStatus != models.OrderStatusReady {
		t.Errorf("last event = %+v", last)
	}
}

func TestShopNamesAreUnique(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	north := seedShop(t, s, "North")
	south := seedShop(t, s, "South")

	if err := s.CreateShop(ctx, &models.Shop{Name: "North", IsOpen: true}); !errors.Is(err, ErrShopNameTaken) {
		t.Errorf("duplicate create: err = %v", err)
	}

	taken := "North"
	if _, err := s.UpdateShop(ctx, south.ID, ShopUpdate{Name: &taken}); !errors.Is(err, ErrShopNameTaken) {
		t.Errorf("rename onto another shop: err = %v", err)
	}
	if _, err := s.UpdateShop(ctx, north.ID, ShopUpdate{Name: &taken}); err != nil {
		t.Errorf("keeping own name: err = %v", err)
	}
}

func TestCreateUserLosingRaceReportsEmailTaken(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// A concurrent registration inserts the same email after the
	// pre-insert check has passed.
	raced := false
	err := s.db.Callback().Create().Before("gorm:create").Register("test:race", func(db *gorm.DB) {
		if raced || db.Statement.Table != "users" {
			return
		}
		raced = true
		now := time.Now()
		res := db.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO users (name, email, password, role, approval_status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			"Other", "meera@campus.edu", "x", models.RoleStudent, models.ApprovalPending, now, now,
		)
		if res.Error != nil {
			db.AddError(res.Error)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.CreateUser(ctx, NewUser{Name: "Meera", Email: "meera@campus.edu", Password: "password1", Role: models.RoleStudent})
	if !raced {
		t.Fatal("racing insert never ran")
	}
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestUniqueViolation(t *testing.T) {
	other := errors.New("disk full")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"duplicate", gorm.ErrDuplicatedKey, ErrEmailTaken},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uniqueViolation(tt.err, ErrEmailTaken); got != tt.want {
				t.Errorf("uniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
