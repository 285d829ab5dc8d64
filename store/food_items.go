package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"campus-canteen/models"
)

type FoodItemUpdate struct {
	Name     *string
	Category *string
	Price    *decimal.Decimal
	Rating   *float64
}

func (s *Store) CreateFoodItem(ctx context.Context, item *models.FoodItem) error {
	if !item.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if item.IsOffer {
		if item.OfferPrice == nil {
			offer := models.DefaultOfferPrice(item.Price)
			item.OfferPrice = &offer
		}
		if !models.ValidOfferPrice(item.Price, *item.OfferPrice) {
			return ErrInvalidOfferPrice
		}
	} else {
		item.OfferPrice = nil
	}

	if _, err := s.GetShop(ctx, item.ShopID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// ListFoodItems returns the menu of a shop. With onlyAvailable set, items
// switched off by staff are left out.
func (s *Store) ListFoodItems(ctx context.Context, shopID uint, onlyAvailable bool) ([]models.FoodItem, error) {
	query := s.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}

	items := []models.FoodItem{}
	if err := query.Order("category ASC, name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetFoodItem(ctx context.Context, shopID, id uint) (*models.FoodItem, error) {
	var item models.FoodItem
	if err := s.db.WithContext(ctx).Where("id = ? AND shop_id = ?", id, shopID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFoodItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateFoodItem(ctx context.Context, shopID, id uint, u FoodItemUpdate) (*models.FoodItem, error) {
	item, err := s.GetFoodItem(ctx, shopID, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Category != nil {
		updates["category"] = *u.Category
	}
	if u.Rating != nil {
		updates["rating"] = *u.Rating
	}
	if u.Price != nil {
		if !u.Price.IsPositive() {
			return nil, ErrInvalidPrice
		}
		if item.IsOffer && item.OfferPrice != nil && !models.ValidOfferPrice(*u.Price, *item.OfferPrice) {
			return nil, ErrInvalidOfferPrice
		}
		updates["price"] = *u.Price
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetFoodItem(ctx, shopID, id)
}

// ToggleAvailability flips whether students can order the item.
func (s *Store) ToggleAvailability(ctx context.Context, shopID, id uint) (*models.FoodItem, error) {
	item, err := s.GetFoodItem(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(item).Update("is_available", !item.IsAvailable).Error; err != nil {
		return nil, err
	}
	return s.GetFoodItem(ctx, shopID, id)
}

// ToggleOffer switches the offer off when it is on. When it is off it is
// switched on at offerPrice, or round(price * 0.8) if offerPrice is nil.
func (s *Store) ToggleOffer(ctx context.Context, shopID, id uint, offerPrice *decimal.Decimal) (*models.FoodItem, error) {
	item, err := s.GetFoodItem(ctx, shopID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"is_offer": false, "offer_price": nil}
	if !item.IsOffer {
		offer := models.DefaultOfferPrice(item.Price)
		if offerPrice != nil {
			offer = *offerPrice
		}
		if !models.ValidOfferPrice(item.Price, offer) {
			return nil, ErrInvalidOfferPrice
		}
		updates = map[string]interface{}{"is_offer": true, "offer_price": offer}
	}

	if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetFoodItem(ctx, shopID, id)
}

func (s *Store) DeleteFoodItem(ctx context.Context, shopID, id uint) error {
	item, err := s.GetFoodItem(ctx, shopID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(item).Error
}
