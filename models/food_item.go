package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OfferDiscount is the factor applied to a price when staff switch an offer on
// without naming an offer price.
var OfferDiscount = decimal.NewFromFloat(0.8)

type FoodItem struct {
	gorm.Model
	ShopID      uint             `json:"shop_id" gorm:"not null;index"`
	Shop        Shop             `json:"-"`
	Name        string           `json:"name" gorm:"not null"`
	Category    string           `json:"category" gorm:"index"`
	Price       decimal.Decimal  `json:"price" gorm:"type:numeric;not null"`
	IsAvailable bool             `json:"is_available" gorm:"not null"`
	IsOffer     bool             `json:"is_offer" gorm:"not null"`
	OfferPrice  *decimal.Decimal `json:"offer_price,omitempty" gorm:"type:numeric"`
	Rating      float64          `json:"rating"`
}

// EffectivePrice is what a student pays for one unit right now.
func (f *FoodItem) EffectivePrice() decimal.Decimal {
	if f.IsOffer && f.OfferPrice != nil {
		return *f.OfferPrice
	}
	return f.Price
}

// DefaultOfferPrice returns round(price * 0.8).
func DefaultOfferPrice(price decimal.Decimal) decimal.Decimal {
	return price.Mul(OfferDiscount).Round(0)
}

// ValidOfferPrice reports whether p can be used as an offer price for price.
func ValidOfferPrice(price, p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(price)
}
