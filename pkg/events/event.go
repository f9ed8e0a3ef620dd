// Package events fans order lifecycle events out to the audit log and the
// event bus. Delivery is best effort and never blocks the request path.
package events

import (
	"context"
	"time"

	"github.com/example/jewelshop/pkg/models"
)

type Type string

const (
	OrderCreated         Type = "order.created"
	PaymentIntentCreated Type = "payment.intent_created"
	PaymentCompleted     Type = "payment.completed"
	PaymentFailed        Type = "payment.failed"
	OrderStatusChanged   Type = "order.status_changed"
	RequestSubmitted     Type = "request.submitted"
	RequestResolved      Type = "request.resolved"
)

type Event struct {
	Type          Type                     `json:"type"`
	OrderID       string                   `json:"orderId"`
	UserID        string                   `json:"userId"`
	Actor         string                   `json:"actor,omitempty"`
	Status        models.FulfillmentStatus `json:"status"`
	PaymentStatus models.PaymentStatus     `json:"paymentStatus"`
	Detail        map[string]any           `json:"detail,omitempty"`
	At            time.Time                `json:"at"`
}

// FromOrder snapshots the order's statuses into an event.
func FromOrder(t Type, order *models.Order, actor string, detail map[string]any) Event {
	return Event{
		Type:          t,
		OrderID:       order.ID,
		UserID:        order.UserID,
		Actor:         actor,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Detail:        detail,
		At:            time.Now().UTC(),
	}
}

// Publisher accepts events without waiting for delivery.
type Publisher interface {
	Publish(e Event)
}

// Sink delivers one event to a destination.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
