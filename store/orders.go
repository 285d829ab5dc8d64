package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"campus-canteen/events"
	"campus-canteen/models"
	"campus-canteen/utils"
)

const (
	maxCartLines    = 50
	maxLineQuantity = 20
)

type CartLine struct {
	FoodItemID uint
	Quantity   int64
}

type CreateOrderInput struct {
	UserID   uint
	UserName string
	ShopID   uint
	Lines    []CartLine
}

// OrderFilter narrows ListOrders. Zero fields do not filter.
type OrderFilter struct {
	ShopID uint
	UserID uint
	Status models.OrderStatus
}

// TransitionResult is the outcome of a committed status change. Order is
// re-read after the commit and is the value callers should keep.
type TransitionResult struct {
	Order    *models.Order
	Previous models.OrderStatus
}

func validateCart(lines []CartLine) error {
	if len(lines) == 0 || len(lines) > maxCartLines {
		return fmt.Errorf("%w: cart must contain 1-%d lines", ErrInvalidCart, maxCartLines)
	}
	for i, line := range lines {
		if line.Quantity < 1 || line.Quantity > maxLineQuantity {
			return fmt.Errorf("%w: lines[%d].quantity must be between 1 and %d", ErrInvalidCart, i, maxLineQuantity)
		}
	}
	return nil
}

// CreateOrder checks out a cart at a shop. Prices are snapshotted from the
// current menu and the total is fixed here for the life of the order.
func (s *Store) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if err := validateCart(in.Lines); err != nil {
		return nil, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var shop models.Shop
		if err := tx.First(&shop, in.ShopID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShopNotFound
			}
			return err
		}
		if !shop.IsOpen {
			return ErrShopClosed
		}

		ids := make([]uint, 0, len(in.Lines))
		for _, line := range in.Lines {
			ids = append(ids, line.FoodItemID)
		}

		var foodItems []models.FoodItem
		if err := tx.Where("id IN ? AND shop_id = ?", ids, shop.ID).Find(&foodItems).Error; err != nil {
			return err
		}
		byID := make(map[uint]models.FoodItem, len(foodItems))
		for _, f := range foodItems {
			byID[f.ID] = f
		}

		items := make([]models.OrderItem, 0, len(in.Lines))
		for i, line := range in.Lines {
			food, ok := byID[line.FoodItemID]
			if !ok {
				return fmt.Errorf("%w: id %d in shop %d", ErrFoodItemNotFound, line.FoodItemID, shop.ID)
			}
			if !food.IsAvailable {
				return fmt.Errorf("%w: %s", ErrItemUnavailable, food.Name)
			}
			item := models.OrderItem{
				Position:   i,
				FoodItemID: food.ID,
				Name:       food.Name,
				Price:      food.Price,
				Quantity:   line.Quantity,
				IsOffer:    food.IsOffer && food.OfferPrice != nil,
			}
			if item.IsOffer {
				offer := *food.OfferPrice
				item.OfferPrice = &offer
			}
			items = append(items, item)
		}

		token, err := s.issuePickupToken(tx, shop.ID)
		if err != nil {
			return err
		}

		now := s.now()
		order = models.Order{
			ID:          uuid.NewString(),
			PickupToken: token,
			UserID:      in.UserID,
			UserName:    in.UserName,
			ShopID:      shop.ID,
			Items:       items,
			Total:       models.ItemsTotal(items),
			Status:      models.OrderStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		"action", utils.ActionOrderPlaced,
		"order_id", order.ID,
		"shop_id", order.ShopID,
		"total", order.Total.String(),
	)
	s.publish(ctx, events.Placed(&order))
	return &order, nil
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := preloadItems(s.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListOrders returns matching orders, newest first.
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	query := preloadItems(s.db.WithContext(ctx))
	if f.ShopID != 0 {
		query = query.Where("shop_id = ?", f.ShopID)
	}
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
		}
		query = query.Where("status = ?", f.Status)
	}

	orders := []models.Order{}
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Snapshot returns every order of shopID (all shops when shopID is 0). The
// slice is detached from the store and safe to aggregate over.
func (s *Store) Snapshot(ctx context.Context, shopID uint) ([]models.Order, error) {
	return s.ListOrders(ctx, OrderFilter{ShopID: shopID})
}

// ActiveOrdersByToken returns the non-terminal orders of shopID holding token.
func (s *Store) ActiveOrdersByToken(ctx context.Context, shopID uint, token string) ([]models.Order, error) {
	orders := []models.Order{}
	err := preloadItems(s.db.WithContext(ctx)).
		Where("shop_id = ? AND pickup_token = ? AND status IN ?", shopID, token, ActiveStatuses).
		Find(&orders).Error
	return orders, err
}

// UpdateOrderStatus moves an order along the lifecycle. The edge is always
// checked against the transition table, and the write only applies if the
// status is still the one that was read.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, to models.OrderStatus, actor uint) (*TransitionResult, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	var (
		previous  models.OrderStatus
		committed models.Order
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.First(&current, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !models.CanTransition(current.Status, to) {
			return &TransitionError{From: current.Status, To: to}
		}

		now := s.now()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, current.Status).
			Updates(map[string]interface{}{"status": to, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}

		change := models.OrderStatusChange{
			OrderID:   orderID,
			From:      current.Status,
			To:        to,
			ChangedBy: actor,
			CreatedAt: now,
		}
		if err := tx.Create(&change).Error; err != nil {
			return err
		}
		previous = current.Status
		committed = current
		committed.Status = to
		committed.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			s.log.Info("transition rejected",
				"action", utils.ActionTransitionRejected,
				"order_id", orderID,
				"to", to,
				"error", err,
			)
		}
		return nil, err
	}

	// The change is committed here. A failed re-read falls back to the row
	// read inside the transaction, without its items.
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		s.log.Warn("order status committed but reload failed",
			"action", utils.ActionDBQueryFailed,
			"order_id", orderID,
			"to", to,
			"error", err,
		)
		order = &committed
	}

	s.log.Info("order status changed",
		"action", utils.ActionOrderStatusChanged,
		"order_id", orderID,
		"from", previous,
		"to", order.Status,
		"changed_by", actor,
	)
	s.publish(ctx, events.StatusChanged(order, previous, actor))
	return &TransitionResult{Order: order, Previous: previous}, nil
}

// StatusHistory returns the recorded transitions of an order, oldest first.
func (s *Store) StatusHistory(ctx context.Context, orderID string) ([]models.OrderStatusChange, error) {
	changes := []models.OrderStatusChange{}
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&changes).Error
	return changes, err
}
