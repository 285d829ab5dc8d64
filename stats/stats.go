// Package stats derives dashboard figures from an order snapshot. Every
// function is pure: same snapshot and clock, same answer.
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"campus-canteen/models"
)

// CountByStatus counts orders per status. Every status is present in the
// result, with zero when no order has it.
func CountByStatus(orders []models.Order) map[models.OrderStatus]int {
	counts := make(map[models.OrderStatus]int, len(models.OrderStatuses))
	for _, s := range models.OrderStatuses {
		counts[s] = 0
	}
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts
}

// SameDay reports whether t falls on now's calendar date in now's location.
func SameDay(t, now time.Time) bool {
	ty, tm, td := t.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ty == ny && tm == nm && td == nd
}

// SameDayRevenue sums the totals of completed orders created on now's
// calendar date. It is not a rolling 24 hour window.
func SameDayRevenue(orders []models.Order, now time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		if o.Status == models.OrderStatusCompleted && SameDay(o.CreatedAt, now) {
			sum = sum.Add(o.Total)
		}
	}
	return sum
}

type Summary struct {
	ShopID           uint                       `json:"shop_id,omitempty"`
	Counts           map[models.OrderStatus]int `json:"counts"`
	ActiveOrders     int                        `json:"active_orders"`
	TodayOrders      int                        `json:"today_orders"`
	TodayRevenue     decimal.Decimal            `json:"today_revenue"`
	CompletedRevenue decimal.Decimal            `json:"completed_revenue"`
}

// Summarize bundles the dashboard figures for one snapshot.
func Summarize(orders []models.Order, now time.Time) Summary {
	s := Summary{
		Counts:           CountByStatus(orders),
		TodayRevenue:     SameDayRevenue(orders, now),
		CompletedRevenue: decimal.Zero,
	}
	for _, o := range orders {
		if !o.Status.IsTerminal() {
			s.ActiveOrders++
		}
		if SameDay(o.CreatedAt, now) {
			s.TodayOrders++
		}
		if o.Status == models.OrderStatusCompleted {
			s.CompletedRevenue = s.CompletedRevenue.Add(o.Total)
		}
	}
	return s
}

// ByShop groups a multi-shop snapshot and summarizes each shop.
func ByShop(orders []models.Order, now time.Time) map[uint]Summary {
	grouped := make(map[uint][]models.Order)
	for _, o := range orders {
		grouped[o.ShopID] = append(grouped[o.ShopID], o)
	}
	out := make(map[uint]Summary, len(grouped))
	for shopID, shopOrders := range grouped {
		sum := Summarize(shopOrders, now)
		sum.ShopID = shopID
		out[shopID] = sum
	}
	return out
}
