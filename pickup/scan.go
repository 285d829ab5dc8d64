package pickup

import (
	"context"
	"errors"
	"log/slog"

	"campus-canteen/models"
	"campus-canteen/store"
	"campus-canteen/utils"
)

type Outcome string

const (
	// OutcomeCompleted: the order was ready and is now completed.
	OutcomeCompleted Outcome = "completed"
	// OutcomeNotReady: the order was found but is not ready, nothing changed.
	OutcomeNotReady Outcome = "not_ready"
	OutcomeNotFound Outcome = "not_found"
	// OutcomeInvalidPayload: the scanned text is not a pickup payload.
	OutcomeInvalidPayload Outcome = "invalid_payload"
	// OutcomeTokenCollision: the token matched more than one active order and
	// the payload carried no order id to disambiguate.
	OutcomeTokenCollision Outcome = "token_collision"
	// OutcomeConflict: another writer changed the order during the scan.
	OutcomeConflict Outcome = "conflict"
)

type Result struct {
	Outcome  Outcome            `json:"outcome"`
	Order    *models.Order      `json:"order,omitempty"`
	Previous models.OrderStatus `json:"previous_status,omitempty"`
}

// Found reports whether the scan identified an order.
func (r Result) Found() bool {
	return r.Order != nil
}

// OrderStore is the part of the store a scanner needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ActiveOrdersByToken(ctx context.Context, shopID uint, token string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, to models.OrderStatus, actor uint) (*store.TransitionResult, error)
}

type Verifier struct {
	orders OrderStore
	log    *slog.Logger
}

func NewVerifier(orders OrderStore, log *slog.Logger) *Verifier {
	return &Verifier{orders: orders, log: log}
}

// Scan handles text read at the counter of shopID by actor. Only a ready
// order is moved, and only to completed. Every other case reports an outcome
// and leaves all orders untouched. The returned error is reserved for storage
// failures.
func (v *Verifier) Scan(ctx context.Context, shopID, actor uint, raw string) (Result, error) {
	payload, err := Decode(raw)
	if err != nil {
		v.log.Info("scan ignored",
			"action", utils.ActionScanInvalidPayload,
			"shop_id", shopID,
			"json_object", isJSONObject(raw),
			"error", err,
		)
		return Result{Outcome: OutcomeInvalidPayload}, nil
	}

	order, outcome, err := v.lookup(ctx, shopID, payload)
	if err != nil {
		return Result{}, err
	}
	v.log.Info("scan received",
		"action", utils.ActionScanReceived,
		"shop_id", shopID,
		"order_id", payload.OrderID,
		"pickup_token", payload.PickupToken,
		"outcome", outcome,
	)
	if order == nil {
		return Result{Outcome: outcome}, nil
	}

	if !order.Total.Equal(payload.Total) {
		v.log.Warn("scanned total differs from order total",
			"order_id", order.ID,
			"payload_total", payload.Total.String(),
			"order_total", order.Total.String(),
		)
	}

	if order.Status != models.OrderStatusReady {
		return Result{Outcome: OutcomeNotReady, Order: order}, nil
	}

	res, err := v.orders.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCompleted, actor)
	if err != nil {
		if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrInvalidTransition) {
			current, gerr := v.orders.GetOrder(ctx, order.ID)
			if gerr != nil {
				return Result{}, gerr
			}
			return Result{Outcome: OutcomeConflict, Order: current}, nil
		}
		return Result{}, err
	}
	return Result{Outcome: OutcomeCompleted, Order: res.Order, Previous: res.Previous}, nil
}

// lookup resolves the payload to an order of shopID. The order id is the
// primary key; the token is only consulted when no id was scanned, so an
// unknown id is not_found even if its token matches an active order.
func (v *Verifier) lookup(ctx context.Context, shopID uint, p Payload) (*models.Order, Outcome, error) {
	if p.OrderID != "" {
		order, err := v.orders.GetOrder(ctx, p.OrderID)
		if errors.Is(err, store.ErrOrderNotFound) {
			return nil, OutcomeNotFound, nil
		}
		if err != nil {
			return nil, "", err
		}
		if order.ShopID != shopID {
			return nil, OutcomeNotFound, nil
		}
		return order, "", nil
	}

	matches, err := v.orders.ActiveOrdersByToken(ctx, shopID, p.PickupToken)
	if err != nil {
		return nil, "", err
	}
	switch len(matches) {
	case 0:
		return nil, OutcomeNotFound, nil
	case 1:
		return &matches[0], "", nil
	default:
		return nil, OutcomeTokenCollision, nil
	}
}
