package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-canteen/models"
	"campus-canteen/pickup"
)

type ScanRequest struct {
	Payload string `json:"payload"`
}

// GetPickupPayloadHandler returns the QR text for one of the student's orders.
func GetPickupPayloadHandler(c *gin.Context) {
	order, ok := studentOrder(c)
	if !ok {
		return
	}
	if order.Status == models.OrderStatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Order was cancelled"})
		return
	}

	payload := pickup.PayloadFor(order)
	text, err := pickup.Encode(payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payload": payload, "qr_text": text, "status": order.Status})
}

// ScanHandler takes the text read by the counter scanner. Unreadable codes
// are not an HTTP error: the outcome says what happened so the scanner can
// stay open.
func ScanHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}

	var request ScanRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusOK, pickup.Result{Outcome: pickup.OutcomeInvalidPayload})
		return
	}

	result, err := Scanner.Scan(c.Request.Context(), shopID, currentClaims(c).UserID, request.Payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
