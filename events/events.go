// Package events fans order lifecycle events out to external sinks
// (RabbitMQ, Telegram). Sinks are best effort: a failing sink never undoes
// the state change that produced the event.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"campus-canteen/models"
	"campus-canteen/utils"
)

type Kind string

const (
	KindOrderPlaced        Kind = "order.placed"
	KindOrderStatusChanged Kind = "order.status_changed"
)

type OrderEvent struct {
	Kind        Kind               `json:"kind"`
	OrderID     string             `json:"order_id"`
	ShopID      uint               `json:"shop_id"`
	PickupToken string             `json:"pickup_token"`
	UserName    string             `json:"user_name"`
	Total       decimal.Decimal    `json:"total"`
	OldStatus   models.OrderStatus `json:"old_status,omitempty"`
	NewStatus   models.OrderStatus `json:"new_status"`
	ChangedBy   uint               `json:"changed_by"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Placed builds the event emitted when an order is created.
func Placed(order *models.Order) OrderEvent {
	return OrderEvent{
		Kind:        KindOrderPlaced,
		OrderID:     order.ID,
		ShopID:      order.ShopID,
		PickupToken: order.PickupToken,
		UserName:    order.UserName,
		Total:       order.Total,
		NewStatus:   order.Status,
		ChangedBy:   order.UserID,
		Timestamp:   order.CreatedAt,
	}
}

// StatusChanged builds the event emitted after a committed transition.
func StatusChanged(order *models.Order, previous models.OrderStatus, changedBy uint) OrderEvent {
	return OrderEvent{
		Kind:        KindOrderStatusChanged,
		OrderID:     order.ID,
		ShopID:      order.ShopID,
		PickupToken: order.PickupToken,
		UserName:    order.UserName,
		Total:       order.Total,
		OldStatus:   previous,
		NewStatus:   order.Status,
		ChangedBy:   changedBy,
		Timestamp:   order.UpdatedAt,
	}
}

// Publisher delivers order events somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
func (Nop) Close() error                              { return nil }

// Fanout publishes to every sink and logs the ones that fail.
type Fanout struct {
	sinks []Publisher
	log   *slog.Logger
}

func NewFanout(log *slog.Logger, sinks ...Publisher) *Fanout {
	return &Fanout{sinks: sinks, log: log}
}

func (f *Fanout) Publish(ctx context.Context, event OrderEvent) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			f.log.Error("event publish failed",
				"action", utils.ActionEventPublishFailed,
				"kind", event.Kind,
				"order_id", event.OrderID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, sink := range f.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}
