package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"campus-canteen/models"
)

type ShopUpdate struct {
	Name        *string
	Description *string
	Location    *string
	IsOpen      *bool
}

func (s *Store) CreateShop(ctx context.Context, shop *models.Shop) error {
	if err := s.checkShopName(ctx, shop.Name, 0); err != nil {
		return err
	}
	return uniqueViolation(s.db.WithContext(ctx).Create(shop).Error, ErrShopNameTaken)
}

// checkShopName reports ErrShopNameTaken if a shop other than exceptID
// already uses name. Soft-deleted shops still hold their name in the index.
func (s *Store) checkShopName(ctx context.Context, name string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&models.Shop{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrShopNameTaken
	}
	return nil
}

func (s *Store) GetShop(ctx context.Context, id uint) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.WithContext(ctx).First(&shop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return &shop, nil
}

// ListShops returns all shops, optionally filtered by a case-insensitive
// name fragment.
func (s *Store) ListShops(ctx context.Context, nameQuery string) ([]models.Shop, error) {
	query := s.db.WithContext(ctx).Model(&models.Shop{})
	if nameQuery != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+nameQuery+"%")
	}

	shops := []models.Shop{}
	if err := query.Order("id ASC").Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

func (s *Store) UpdateShop(ctx context.Context, id uint, u ShopUpdate) (*models.Shop, error) {
	shop, err := s.GetShop(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if u.Name != nil && *u.Name != shop.Name {
		if err := s.checkShopName(ctx, *u.Name, id); err != nil {
			return nil, err
		}
		updates["name"] = *u.Name
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Location != nil {
		updates["location"] = *u.Location
	}
	if u.IsOpen != nil {
		updates["is_open"] = *u.IsOpen
	}
	if len(updates) == 0 {
		return shop, nil
	}

	if err := s.db.WithContext(ctx).Model(shop).Updates(updates).Error; err != nil {
		return nil, uniqueViolation(err, ErrShopNameTaken)
	}
	return s.GetShop(ctx, id)
}
