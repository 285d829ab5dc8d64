package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-canteen/models"
	"campus-canteen/store"
)

// CreateShopRequest defines the request body (JSON) for creating a new shop
type CreateShopRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Location    string `json:"location"`
	IsOpen      *bool  `json:"is_open"`
}

type UpdateShopRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	IsOpen      *bool   `json:"is_open"`
}

type SetShopOpenRequest struct {
	IsOpen *bool `json:"is_open" binding:"required"`
}

func ListShopsHandler(c *gin.Context) {
	shops, err := Store.ListShops(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shops": shops})
}

func GetShopHandler(c *gin.Context) {
	shopID, ok := uintParam(c, "shop_id")
	if !ok {
		return
	}
	shop, err := Store.GetShop(c.Request.Context(), shopID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": shop})
}

func CreateShopHandler(c *gin.Context) {
	var request CreateShopRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shop := models.Shop{
		Name:        request.Name,
		Description: request.Description,
		Location:    request.Location,
		IsOpen:      request.IsOpen == nil || *request.IsOpen,
	}
	if err := Store.CreateShop(c.Request.Context(), &shop); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"shop": shop})
}

func UpdateShopHandler(c *gin.Context) {
	shopID, ok := uintParam(c, "shop_id")
	if !ok {
		return
	}

	var request UpdateShopRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON error: " + err.Error()})
		return
	}

	shop, err := Store.UpdateShop(c.Request.Context(), shopID, store.ShopUpdate{
		Name:        request.Name,
		Description: request.Description,
		Location:    request.Location,
		IsOpen:      request.IsOpen,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": shop})
}

// SetOwnShopOpenHandler lets an owner open or close their shop for orders.
func SetOwnShopOpenHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}

	var request SetShopOpenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shop, err := Store.UpdateShop(c.Request.Context(), shopID, store.ShopUpdate{IsOpen: request.IsOpen})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": shop})
}

// staffShopID returns the shop the signed-in captain or owner works at.
func staffShopID(c *gin.Context) (uint, bool) {
	claims := currentClaims(c)
	if claims == nil || claims.ShopID == 0 {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "No shop is assigned to this account"})
		return 0, false
	}
	return claims.ShopID, true
}
