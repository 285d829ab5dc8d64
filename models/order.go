package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// allowedTransitions maps a status to the statuses it may move to.
// Terminal statuses have no entry.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusCompleted, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransition reports whether from -> to is an edge of the order lifecycle.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	PickupToken string          `json:"pickup_token" gorm:"not null;index:idx_orders_shop_token"`
	UserID      uint            `json:"user_id" gorm:"not null;index"`
	UserName    string          `json:"user_name" gorm:"not null"`
	ShopID      uint            `json:"shop_id" gorm:"not null;index;index:idx_orders_shop_token"`
	Items       []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Total       decimal.Decimal `json:"total" gorm:"type:numeric;not null"`
	Status      OrderStatus     `json:"status" gorm:"not null;index"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null;index"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderItem is a snapshot of a food item taken at checkout.
type OrderItem struct {
	ID         uint             `json:"-" gorm:"primaryKey"`
	OrderID    string           `json:"-" gorm:"not null;index;size:36"`
	Position   int              `json:"-" gorm:"not null"`
	FoodItemID uint             `json:"food_item_id"`
	Name       string           `json:"name" gorm:"not null"`
	Price      decimal.Decimal  `json:"price" gorm:"type:numeric;not null"`
	Quantity   int64            `json:"quantity" gorm:"not null"`
	IsOffer    bool             `json:"is_offer"`
	OfferPrice *decimal.Decimal `json:"offer_price,omitempty" gorm:"type:numeric"`
}

// LineTotal is the effective unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	unit := i.Price
	if i.IsOffer && i.OfferPrice != nil {
		unit = *i.OfferPrice
	}
	return unit.Mul(decimal.NewFromInt(i.Quantity))
}

// ItemsTotal sums the effective line prices of items.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderStatusChange is one row of an order's status history.
type OrderStatusChange struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	OrderID   string      `json:"order_id" gorm:"not null;index;size:36"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to" gorm:"not null"`
	ChangedBy uint        `json:"changed_by"`
	CreatedAt time.Time   `json:"created_at"`
}
