package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-canteen/models"
	"campus-canteen/store"
)

// OrderItemRequest is part of PlaceOrderRequest
type OrderItemRequest struct {
	FoodItemID uint  `json:"food_item_id" binding:"required"`
	Quantity   int64 `json:"quantity" binding:"required,gt=0"`
}

// PlaceOrderRequest defines the request body (JSON) for a student checking out a cart
type PlaceOrderRequest struct {
	ShopID uint               `json:"shop_id" binding:"required"`
	Items  []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderStatusRequest defines the request body for staff moving an order along
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// PlaceOrderHandler handles a student placing a new order
func PlaceOrderHandler(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := currentClaims(c)
	user, err := Store.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	lines := make([]store.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, store.CartLine{FoodItemID: item.FoodItemID, Quantity: item.Quantity})
	}

	order, err := Store.CreateOrder(c.Request.Context(), store.CreateOrderInput{
		UserID:   user.ID,
		UserName: user.Name,
		ShopID:   req.ShopID,
		Lines:    lines,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func GetStudentOrdersHandler(c *gin.Context) {
	claims := currentClaims(c)
	orders, err := Store.ListOrders(c.Request.Context(), store.OrderFilter{
		UserID: claims.UserID,
		Status: models.OrderStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// studentOrder loads an order owned by the signed-in student. Someone else's
// order is reported as missing.
func studentOrder(c *gin.Context) (*models.Order, bool) {
	claims := currentClaims(c)
	order, err := Store.GetOrder(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if order.UserID != claims.UserID {
		respondError(c, store.ErrOrderNotFound)
		return nil, false
	}
	return order, true
}

func GetStudentOrderHandler(c *gin.Context) {
	order, ok := studentOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelStudentOrderHandler lets a student withdraw an order the kitchen has
// not started on.
func CancelStudentOrderHandler(c *gin.Context) {
	order, ok := studentOrder(c)
	if !ok {
		return
	}
	if order.Status != models.OrderStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Order can only be cancelled while pending", "status": order.Status})
		return
	}

	result, err := Store.UpdateOrderStatus(c.Request.Context(), order.ID, models.OrderStatusCancelled, currentClaims(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": result.Order, "previous_status": result.Previous})
}

func GetShopOrdersHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}

	orders, err := Store.ListOrders(c.Request.Context(), store.OrderFilter{
		ShopID: shopID,
		Status: models.OrderStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// shopOrder loads an order of the signed-in staff member's shop.
func shopOrder(c *gin.Context) (*models.Order, bool) {
	shopID, ok := staffShopID(c)
	if !ok {
		return nil, false
	}
	order, err := Store.GetOrder(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if order.ShopID != shopID {
		respondError(c, store.ErrOrderNotFound)
		return nil, false
	}
	return order, true
}

func GetShopOrderHandler(c *gin.Context) {
	order, ok := shopOrder(c)
	if !ok {
		return
	}
	history, err := Store.StatusHistory(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "history": history})
}

// UpdateOrderStatusHandler moves an order of the staff member's shop to the
// requested status. The response carries the authoritative order.
func UpdateOrderStatusHandler(c *gin.Context) {
	var request UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !request.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		return
	}

	order, ok := shopOrder(c)
	if !ok {
		return
	}

	result, err := Store.UpdateOrderStatus(c.Request.Context(), order.ID, request.Status, currentClaims(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": result.Order, "previous_status": result.Previous})
}
