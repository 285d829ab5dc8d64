package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"campus-canteen/models"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrShopNotFound     = errors.New("shop not found")
	ErrShopNameTaken    = errors.New("shop name already in use")
	ErrFoodItemNotFound = errors.New("food item not found")
	ErrUserNotFound     = errors.New("user not found")

	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("order status changed concurrently")

	ErrShopClosed        = errors.New("shop is closed")
	ErrItemUnavailable   = errors.New("food item is not available")
	ErrInvalidCart       = errors.New("invalid cart")
	ErrTokenExhausted    = errors.New("no free pickup token")
	ErrInvalidOfferPrice = errors.New("offer price must be between 0 and the item price")
	ErrInvalidPrice      = errors.New("price must be positive")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotApproved        = errors.New("account is not approved")
	ErrNotPending         = errors.New("student is not pending approval")
	ErrInvalidRole        = errors.New("invalid role")
)

// uniqueViolation maps a translated unique-constraint failure to taken, so
// a writer that lost a race sees the same error as one caught by the
// pre-insert check.
func uniqueViolation(err, taken error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return taken
	}
	return err
}

// TransitionError reports an edge the order lifecycle does not allow.
type TransitionError struct {
	From, To models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
