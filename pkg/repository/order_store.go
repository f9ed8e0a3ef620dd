package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// orderDocument is the stored shape. Older documents carry the amount under
// "total" instead of "totalAmount"; normalize folds them into one field.
type orderDocument struct {
	models.Order `bson:",inline"`
	LegacyTotal  float64 `bson:"total,omitempty"`
}

func (d *orderDocument) normalize() *models.Order {
	o := d.Order
	if o.TotalAmount <= 0 {
		if d.LegacyTotal > 0 {
			o.TotalAmount = d.LegacyTotal
		} else {
			o.TotalAmount = o.ItemsTotal()
		}
	}
	if o.Status == "" {
		o.Status = models.StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentPending
	}
	return &o
}

// OrderStore persists orders in a single Mongo collection. Every mutation is
// one FindOneAndUpdate returning the post-update document.
type OrderStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewOrderStore(coll *mongo.Collection) *OrderStore {
	return &OrderStore{coll: coll, now: time.Now}
}

func (s *OrderStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "gatewayOrderId", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	now := s.now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("order %s already exists", order.ID)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*models.Order, error) {
	var doc orderDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return doc.normalize(), nil
}

func (s *OrderStore) List(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.Order, int64, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["userId"] = filter.UserID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.PaymentStatus != "" {
		q["paymentStatus"] = filter.PaymentStatus
	}
	if filter.HasRequest {
		q["customerRequest.status"] = models.RequestPending
	}

	total, err := s.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(page.Skip).
		SetLimit(page.Limit)

	cursor, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]*models.Order, len(docs))
	for i := range docs {
		orders[i] = docs[i].normalize()
	}
	return orders, total, nil
}

func (s *OrderStore) SetGatewayOrder(ctx context.Context, id, gatewayOrderID string) (*models.Order, error) {
	return s.update(ctx, id, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"gatewayOrderId": gatewayOrderID, "updatedAt": s.now().UTC()},
	})
}

func (s *OrderStore) MarkPaid(ctx context.Context, id, gatewayPaymentID string) (*models.Order, error) {
	return s.update(ctx, id, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"paymentStatus":    models.PaymentCompleted,
			"gatewayPaymentId": gatewayPaymentID,
			"updatedAt":        s.now().UTC(),
		},
		"$unset": bson.M{"paymentFailureReason": ""},
	})
}

// MarkPaymentFailed never overwrites a completed payment.
func (s *OrderStore) MarkPaymentFailed(ctx context.Context, id, reason string) (*models.Order, error) {
	filter := bson.M{"_id": id, "paymentStatus": bson.M{"$ne": models.PaymentCompleted}}
	return s.update(ctx, id, filter, bson.M{
		"$set": bson.M{
			"paymentStatus":        models.PaymentFailed,
			"paymentFailureReason": reason,
			"updatedAt":            s.now().UTC(),
		},
	})
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status models.FulfillmentStatus, comment *models.AdminComment) (*models.Order, error) {
	update := bson.M{
		"$set": bson.M{"status": status, "updatedAt": s.now().UTC()},
	}
	if comment != nil {
		update["$push"] = bson.M{"comments": comment}
	}
	return s.update(ctx, id, bson.M{"_id": id}, update)
}

// SetCustomerRequest replaces any existing request. The write only applies
// while the order is still in one of the allowed statuses.
func (s *OrderStore) SetCustomerRequest(ctx context.Context, id string, req models.CustomerRequest, allowed []models.FulfillmentStatus) (*models.Order, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": allowed}}
	return s.update(ctx, id, filter, bson.M{
		"$set": bson.M{"customerRequest": req, "updatedAt": s.now().UTC()},
	})
}

// Resolution is the admin decision on a customer request. When Cascade is
// set the fulfillment status changes in the same write.
type Resolution struct {
	Status       models.RequestStatus
	AdminComment string
	Cascade      *models.FulfillmentStatus
	Author       string
}

func (s *OrderStore) ResolveCustomerRequest(ctx context.Context, id string, res Resolution) (*models.Order, error) {
	now := s.now().UTC()
	set := bson.M{
		"customerRequest.status":     res.Status,
		"customerRequest.resolvedAt": now,
		"updatedAt":                  now,
	}
	if res.AdminComment != "" {
		set["customerRequest.adminComment"] = res.AdminComment
	}
	update := bson.M{"$set": set}
	if res.Cascade != nil {
		set["status"] = *res.Cascade
		text := res.AdminComment
		if text == "" {
			text = fmt.Sprintf("customer request %s", res.Status)
		}
		update["$push"] = bson.M{"comments": models.AdminComment{
			Text:      text,
			Status:    *res.Cascade,
			Author:    res.Author,
			CreatedAt: now,
		}}
	}
	filter := bson.M{"_id": id, "customerRequest": bson.M{"$exists": true}}
	return s.update(ctx, id, filter, update)
}

func (s *OrderStore) update(ctx context.Context, id string, filter, update bson.M) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDocument
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.missErr(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}
	return doc.normalize(), nil
}

// missErr distinguishes an absent order from a guard that no longer holds.
func (s *OrderStore) missErr(ctx context.Context, id string) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check order %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("order %s not found", id)
	}
	return apperror.Conflict("order %s changed concurrently", id)
}
