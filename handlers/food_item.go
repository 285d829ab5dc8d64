package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"campus-canteen/models"
	"campus-canteen/store"
)

type CreateFoodItemRequest struct {
	Name        string           `json:"name" binding:"required,max=100"`
	Category    string           `json:"category" binding:"required"`
	Price       decimal.Decimal  `json:"price"`
	IsAvailable *bool            `json:"is_available"`
	IsOffer     bool             `json:"is_offer"`
	OfferPrice  *decimal.Decimal `json:"offer_price"`
	Rating      float64          `json:"rating" binding:"gte=0,lte=5"`
}

type UpdateFoodItemRequest struct {
	Name     *string          `json:"name" binding:"omitempty,max=100"`
	Category *string          `json:"category"`
	Price    *decimal.Decimal `json:"price"`
	Rating   *float64         `json:"rating" binding:"omitempty,gte=0,lte=5"`
}

type ToggleOfferRequest struct {
	OfferPrice *decimal.Decimal `json:"offer_price"`
}

// GetShopMenuHandler is the public menu: available items only.
func GetShopMenuHandler(c *gin.Context) {
	shopID, ok := uintParam(c, "shop_id")
	if !ok {
		return
	}
	if _, err := Store.GetShop(c.Request.Context(), shopID); err != nil {
		respondError(c, err)
		return
	}

	items, err := Store.ListFoodItems(c.Request.Context(), shopID, true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetStaffMenuHandler lists every item of the staff member's shop.
func GetStaffMenuHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}
	items, err := Store.ListFoodItems(c.Request.Context(), shopID, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func CreateFoodItemHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}

	var request CreateFoodItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := &models.FoodItem{
		ShopID:      shopID,
		Name:        request.Name,
		Category:    request.Category,
		Price:       request.Price,
		IsAvailable: request.IsAvailable == nil || *request.IsAvailable,
		IsOffer:     request.IsOffer,
		OfferPrice:  request.OfferPrice,
		Rating:      request.Rating,
	}
	if err := Store.CreateFoodItem(c.Request.Context(), item); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// Path: staff/menu/:item_id
func UpdateFoodItemHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}
	itemID, ok := uintParam(c, "item_id")
	if !ok {
		return
	}

	var request UpdateFoodItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.Name == nil && request.Category == nil && request.Price == nil && request.Rating == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}

	item, err := Store.UpdateFoodItem(c.Request.Context(), shopID, itemID, store.FoodItemUpdate{
		Name:     request.Name,
		Category: request.Category,
		Price:    request.Price,
		Rating:   request.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func ToggleAvailabilityHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}
	itemID, ok := uintParam(c, "item_id")
	if !ok {
		return
	}

	item, err := Store.ToggleAvailability(c.Request.Context(), shopID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ToggleOfferHandler switches an item's offer. The body is optional; without
// an offer_price the offer is set at 80% of the price, rounded.
func ToggleOfferHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}
	itemID, ok := uintParam(c, "item_id")
	if !ok {
		return
	}

	var request ToggleOfferRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	item, err := Store.ToggleOffer(c.Request.Context(), shopID, itemID, request.OfferPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func DeleteFoodItemHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}
	itemID, ok := uintParam(c, "item_id")
	if !ok {
		return
	}

	if err := Store.DeleteFoodItem(c.Request.Context(), shopID, itemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted food item"})
}
