package models

import (
	"time"
)

type FulfillmentStatus string

const (
	StatusPending    FulfillmentStatus = "pending"
	StatusProcessing FulfillmentStatus = "processing"
	StatusShipped    FulfillmentStatus = "shipped"
	StatusDelivered  FulfillmentStatus = "delivered"
	StatusCancelled  FulfillmentStatus = "cancelled"
)

// AdminSettableStatuses are the statuses an admin may move an order to.
var AdminSettableStatuses = []FulfillmentStatus{
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// ParseAdminStatus reports whether s names a status an admin may set.
func ParseAdminStatus(s string) (FulfillmentStatus, bool) {
	for _, st := range AdminSettableStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type RequestType string

const (
	RequestCancellation RequestType = "cancellation"
	RequestReturn       RequestType = "return"
)

func ParseRequestType(s string) (RequestType, bool) {
	switch RequestType(s) {
	case RequestCancellation, RequestReturn:
		return RequestType(s), true
	}
	return "", false
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// ParseResolution accepts the two statuses an admin can resolve a request to.
func ParseResolution(s string) (RequestStatus, bool) {
	switch RequestStatus(s) {
	case RequestApproved, RequestRejected:
		return RequestStatus(s), true
	}
	return "", false
}

// OrderItem is a snapshot of the catalog entry at order time. Later catalog
// edits never touch it.
type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Image     string  `bson:"image,omitempty" json:"image,omitempty"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

type ShippingAddress struct {
	FullName   string `bson:"fullName" json:"fullName"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type CustomerRequest struct {
	Type         RequestType   `bson:"type" json:"type"`
	Reason       string        `bson:"reason" json:"reason"`
	Status       RequestStatus `bson:"status" json:"status"`
	AdminComment string        `bson:"adminComment,omitempty" json:"adminComment,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	ResolvedAt   *time.Time    `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

type AdminComment struct {
	Text      string            `bson:"text" json:"text"`
	Status    FulfillmentStatus `bson:"status" json:"status"`
	Author    string            `bson:"author" json:"author"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}

type Order struct {
	ID                   string            `bson:"_id" json:"id"`
	UserID               string            `bson:"userId" json:"userId"`
	Items                []OrderItem       `bson:"items" json:"items"`
	ShippingAddress      ShippingAddress   `bson:"shippingAddress" json:"shippingAddress"`
	TotalAmount          float64           `bson:"totalAmount" json:"totalAmount"`
	Currency             string            `bson:"currency" json:"currency"`
	Status               FulfillmentStatus `bson:"status" json:"status"`
	PaymentStatus        PaymentStatus     `bson:"paymentStatus" json:"paymentStatus"`
	GatewayOrderID       string            `bson:"gatewayOrderId,omitempty" json:"razorpayOrderId,omitempty"`
	GatewayPaymentID     string            `bson:"gatewayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`
	PaymentFailureReason string            `bson:"paymentFailureReason,omitempty" json:"paymentFailureReason,omitempty"`
	CustomerRequest      *CustomerRequest  `bson:"customerRequest,omitempty" json:"customerRequest,omitempty"`
	Comments             []AdminComment    `bson:"comments,omitempty" json:"comments,omitempty"`
	CreatedAt            time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// ItemsTotal sums price × quantity over the line items.
func (o *Order) ItemsTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// ChargeAmount is the amount to collect: the stored total, or the item sum
// when no positive total was recorded.
func (o *Order) ChargeAmount() float64 {
	if o.TotalAmount > 0 {
		return o.TotalAmount
	}
	return o.ItemsTotal()
}

// CanRequest reports whether a customer request of type t may be opened
// against the order's current fulfillment status.
func (o *Order) CanRequest(t RequestType) bool {
	switch t {
	case RequestCancellation:
		return o.Status != StatusCancelled && o.Status != StatusDelivered
	case RequestReturn:
		return o.Status == StatusDelivered
	}
	return false
}

func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// RequestableStatuses lists the fulfillment statuses under which a request
// of type t may be opened. It mirrors CanRequest for use as a write guard.
func RequestableStatuses(t RequestType) []FulfillmentStatus {
	switch t {
	case RequestCancellation:
		return []FulfillmentStatus{StatusPending, StatusProcessing, StatusShipped}
	case RequestReturn:
		return []FulfillmentStatus{StatusDelivered}
	}
	return nil
}

func ParseFulfillmentStatus(s string) (FulfillmentStatus, bool) {
	if FulfillmentStatus(s) == StatusPending {
		return StatusPending, true
	}
	return ParseAdminStatus(s)
}

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return PaymentStatus(s), true
	}
	return "", false
}
