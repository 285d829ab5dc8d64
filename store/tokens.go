package store

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"gorm.io/gorm"

	"campus-canteen/models"
)

const (
	pickupTokenDigits   = 4
	maxTokenAttempts    = 64
	pickupTokenAlphabet = "0123456789"
)

// ActiveStatuses are the non-terminal statuses. Pickup tokens are unique
// among a shop's orders in these statuses.
var ActiveStatuses = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusPreparing,
	models.OrderStatusReady,
}

func randomPickupToken() (string, error) {
	b := make([]byte, pickupTokenDigits)
	max := big.NewInt(int64(len(pickupTokenAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = pickupTokenAlphabet[n.Int64()]
	}
	return string(b), nil
}

// issuePickupToken picks a token not held by any active order of shopID.
// Callers hold createMu.
func (s *Store) issuePickupToken(tx *gorm.DB, shopID uint) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("generate pickup token: %w", err)
		}

		var count int64
		err = tx.Model(&models.Order{}).
			Where("shop_id = ? AND pickup_token = ? AND status IN ?", shopID, token, ActiveStatuses).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return token, nil
		}
	}
	return "", ErrTokenExhausted
}
