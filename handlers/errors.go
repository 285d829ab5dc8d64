package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus-canteen/store"
	"campus-canteen/utils"
)

// respondError maps store errors onto HTTP statuses. Anything unknown is
// logged and reported as a 500 without details.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrOrderNotFound),
		errors.Is(err, store.ErrShopNotFound),
		errors.Is(err, store.ErrFoodItemNotFound),
		errors.Is(err, store.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, store.ErrInvalidCart),
		errors.Is(err, store.ErrInvalidOfferPrice),
		errors.Is(err, store.ErrInvalidPrice),
		errors.Is(err, store.ErrInvalidRole):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrStatusConflict),
		errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, store.ErrShopNameTaken),
		errors.Is(err, store.ErrNotPending):
		status = http.StatusConflict
	case errors.Is(err, store.ErrShopClosed),
		errors.Is(err, store.ErrItemUnavailable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrNotApproved):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrTokenExhausted):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		Log.Error("request failed",
			"action", utils.ActionDBQueryFailed,
			"path", c.FullPath(),
			"error", err,
		)
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// uintParam reads a numeric path parameter, answering 400 itself on failure.
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}
