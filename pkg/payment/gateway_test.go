package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSignature_MatchesHMACOfOrderAndPayment(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("S"))
	mac.Write([]byte("O1|P1"))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, Signature("O1", "P1", "S"))
	assert.True(t, VerifySignature("O1", "P1", want, "S"))
}

func TestVerifySignature_RejectsAnythingElse(t *testing.T) {
	good := Signature("O1", "P1", "S")

	for _, sig := range []string{
		"",
		"deadbeef",
		good[:len(good)-1],
		good + "0",
		Signature("O1", "P2", "S"),
		Signature("O2", "P1", "S"),
		Signature("O1", "P1", "other-secret"),
	} {
		assert.False(t, VerifySignature("O1", "P1", sig, "S"), "signature %q", sig)
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{1000, 100000},
		{0.3, 100},
		{1, 100},
		{1.4, 100},
		{1.5, 200},
		{499.99, 50000},
		{MaxAmount, 100000000000000000},
	}
	for _, tc := range cases {
		got, err := ToMinorUnits(tc.amount)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "amount %v", tc.amount)
	}
}

func TestToMinorUnits_RejectsUnchargeable(t *testing.T) {
	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1), math.Inf(-1), MaxAmount + 1, 1e17, 1e300} {
		_, err := ToMinorUnits(amount)
		assert.True(t, errors.Is(err, apperror.ErrInvalidAmount), "amount %v", amount)
	}
}

type fakeOrders struct {
	gotData map[string]interface{}
	resp    map[string]interface{}
	err     error
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.gotData = data
	return f.resp, f.err
}

func newTestGateway(orders orderCreator) *RazorpayGateway {
	return &RazorpayGateway{orders: orders, keyID: "rzp_test", secret: "S", logger: zap.NewNop()}
}

func TestRazorpayGateway_CreateOrder(t *testing.T) {
	orders := &fakeOrders{resp: map[string]interface{}{
		"id":       "order_Gw1",
		"amount":   float64(100000),
		"currency": "INR",
	}}
	gw := newTestGateway(orders)

	got, err := gw.CreateOrder(context.Background(), 100000, "INR", "order-1")
	require.NoError(t, err)

	assert.Equal(t, GatewayOrder{ID: "order_Gw1", Amount: 100000, Currency: "INR", Receipt: "order-1"}, got)
	assert.Equal(t, map[string]interface{}{
		"amount":   int64(100000),
		"currency": "INR",
		"receipt":  "order-1",
	}, orders.gotData)
}

func TestRazorpayGateway_CreateOrder_UpstreamError(t *testing.T) {
	gw := newTestGateway(&fakeOrders{err: errors.New("The amount must be atleast INR 1.00")})

	_, err := gw.CreateOrder(context.Background(), 50, "INR", "order-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUpstream))
	assert.Contains(t, apperror.PublicMessage(err), "The amount must be atleast INR 1.00")
}

func TestRazorpayGateway_CreateOrder_MissingID(t *testing.T) {
	gw := newTestGateway(&fakeOrders{resp: map[string]interface{}{}})

	_, err := gw.CreateOrder(context.Background(), 100, "INR", "order-1")
	assert.True(t, errors.Is(err, apperror.ErrUpstream))
}

func TestNewRazorpayGateway_RequiresCredentials(t *testing.T) {
	_, err := NewRazorpayGateway(config.PaymentConfig{KeyID: "rzp_test"}, zap.NewNop())
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))

	gw, err := NewRazorpayGateway(config.PaymentConfig{KeyID: "rzp_test", KeySecret: "S"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "rzp_test", gw.KeyID())
	assert.True(t, gw.VerifySignature("O1", "P1", Signature("O1", "P1", "S")))
}
