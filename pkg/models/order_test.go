package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder_ChargeAmount_FallsBackToItems(t *testing.T) {
	o := &Order{
		TotalAmount: 0,
		Items:       []OrderItem{{ProductID: "ring-1", Price: 500, Quantity: 2}},
	}
	assert.Equal(t, 1000.0, o.ChargeAmount())

	o.TotalAmount = 1250
	assert.Equal(t, 1250.0, o.ChargeAmount())
}

func TestOrder_CanRequest(t *testing.T) {
	cases := []struct {
		status FulfillmentStatus
		typ    RequestType
		want   bool
	}{
		{StatusPending, RequestCancellation, true},
		{StatusProcessing, RequestCancellation, true},
		{StatusShipped, RequestCancellation, true},
		{StatusDelivered, RequestCancellation, false},
		{StatusCancelled, RequestCancellation, false},
		{StatusProcessing, RequestReturn, false},
		{StatusShipped, RequestReturn, false},
		{StatusDelivered, RequestReturn, true},
		{StatusDelivered, RequestType("exchange"), false},
	}
	for _, tc := range cases {
		o := &Order{Status: tc.status}
		assert.Equal(t, tc.want, o.CanRequest(tc.typ), "%s on %s", tc.typ, tc.status)
	}
}

func TestParseAdminStatus(t *testing.T) {
	st, ok := ParseAdminStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, StatusShipped, st)

	_, ok = ParseAdminStatus("archived")
	assert.False(t, ok)

	// pending is the creation status and is not admin-settable.
	_, ok = ParseAdminStatus("pending")
	assert.False(t, ok)
}

func TestOwnedBy(t *testing.T) {
	o := &Order{UserID: "u1"}
	assert.True(t, o.OwnedBy("u1"))
	assert.False(t, o.OwnedBy("u2"))
	assert.False(t, (&Order{}).OwnedBy(""))
}
