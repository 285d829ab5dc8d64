// Package pickup implements counter handoff: the QR payload shown to a
// student and the scan that completes a ready order.
package pickup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"campus-canteen/models"
)

var ErrInvalidPayload = errors.New("invalid pickup payload")

// Payload is what the QR code carries. It is neither signed nor versioned.
type Payload struct {
	OrderID     string
	PickupToken string
	Total       decimal.Decimal
}

type wirePayload struct {
	OrderID     *string      `json:"orderId"`
	PickupToken *string      `json:"pickupToken"`
	Total       *json.Number `json:"total"`
}

func PayloadFor(order *models.Order) Payload {
	return Payload{OrderID: order.ID, PickupToken: order.PickupToken, Total: order.Total}
}

// MarshalJSON writes exactly orderId, pickupToken and total, with total as a
// JSON number.
func (p Payload) MarshalJSON() ([]byte, error) {
	total := json.Number(p.Total.String())
	return json.Marshal(wirePayload{
		OrderID:     &p.OrderID,
		PickupToken: &p.PickupToken,
		Total:       &total,
	})
}

// Encode returns the compact text rendered into the QR code.
func Encode(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses scanned text. Unknown keys, trailing data, a missing or
// non-numeric total, and a payload naming neither an order id nor a token are
// all rejected.
func Decode(raw string) (Payload, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()

	var w wirePayload
	if err := dec.Decode(&w); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, fmt.Errorf("%w: trailing data", ErrInvalidPayload)
	}
	if w.Total == nil {
		return Payload{}, fmt.Errorf("%w: missing total", ErrInvalidPayload)
	}
	total, err := decimal.NewFromString(w.Total.String())
	if err != nil {
		return Payload{}, fmt.Errorf("%w: total: %v", ErrInvalidPayload, err)
	}

	p := Payload{Total: total}
	if w.OrderID != nil {
		p.OrderID = strings.TrimSpace(*w.OrderID)
	}
	if w.PickupToken != nil {
		p.PickupToken = strings.TrimSpace(*w.PickupToken)
	}
	if p.OrderID == "" && p.PickupToken == "" {
		return Payload{}, fmt.Errorf("%w: no order id or pickup token", ErrInvalidPayload)
	}
	return p, nil
}

// isJSONObject is a cheap pre-check so obviously foreign QR codes (URLs,
// plain text) are logged as such.
func isJSONObject(raw string) bool {
	return bytes.HasPrefix(bytes.TrimSpace([]byte(raw)), []byte("{"))
}
