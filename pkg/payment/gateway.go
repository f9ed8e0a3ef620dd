// Package payment wraps the Razorpay order API and its payment signature
// scheme.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"

	"github.com/example/jewelshop/pkg/apperror"
)

// GatewayOrder is the remote payment order the client opens checkout with.
type GatewayOrder struct {
	ID       string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (GatewayOrder, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	KeyID() string
}

// Signature returns hex(HMAC-SHA256("{orderID}|{paymentID}", secret)).
func Signature(gatewayOrderID, gatewayPaymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time against the expected signature.
func VerifySignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	expected := Signature(gatewayOrderID, gatewayPaymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// MaxAmount is the largest single charge in base currency units. Its minor
// unit value stays well inside int64.
const MaxAmount = 1e15

// ToMinorUnits converts a base-currency amount into the gateway's minor unit.
// The gateway has a one-unit minimum, so amounts are floored at 1 and rounded
// to the nearest whole unit before scaling by 100.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, apperror.New(apperror.KindInvalidAmount, "order amount must be positive")
	}
	units := math.Round(math.Max(1, amount))
	if units > MaxAmount {
		return 0, apperror.New(apperror.KindInvalidAmount, "order amount exceeds the maximum chargeable amount")
	}
	return int64(units) * 100, nil
}
