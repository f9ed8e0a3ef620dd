// Package order implements the storefront order lifecycle: creation, payment
// intent and verification, fulfillment updates and customer requests.
package order

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/config"
	"github.com/example/jewelshop/pkg/events"
	"github.com/example/jewelshop/pkg/models"
	"github.com/example/jewelshop/pkg/payment"
	"github.com/example/jewelshop/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	idempotencyScope = "create-order"
	maxReasonLength  = 500
	maxAuditEntries  = 100
)

// Store is the order persistence used by the service.
type Store interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.Order, int64, error)
	SetGatewayOrder(ctx context.Context, id, gatewayOrderID string) (*models.Order, error)
	MarkPaid(ctx context.Context, id, gatewayPaymentID string) (*models.Order, error)
	MarkPaymentFailed(ctx context.Context, id, reason string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.FulfillmentStatus, comment *models.AdminComment) (*models.Order, error)
	SetCustomerRequest(ctx context.Context, id string, req models.CustomerRequest, allowed []models.FulfillmentStatus) (*models.Order, error)
	ResolveCustomerRequest(ctx context.Context, id string, res repository.Resolution) (*models.Order, error)
}

type AuditReader interface {
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

type Cache interface {
	GetOrderCache(ctx context.Context, orderID string) (*models.Order, error)
	CacheOrder(ctx context.Context, order *models.Order) error
	InvalidateOrder(ctx context.Context, orderID string) error
}

type Idempotency interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// Deps are the collaborators of a Service. Cache, Idempotency, Audit and
// Events are optional.
type Deps struct {
	Store       Store
	Gateway     payment.Gateway
	Cache       Cache
	Idempotency Idempotency
	Audit       AuditReader
	Events      events.Publisher
}

type Service struct {
	store       Store
	gateway     payment.Gateway
	cache       Cache
	idem        Idempotency
	audit       AuditReader
	events      events.Publisher
	currency    string
	allowUnsign bool
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(deps Deps, cfg config.PaymentConfig, logger *zap.Logger) *Service {
	pub := deps.Events
	if pub == nil {
		pub = events.Discard{}
	}
	return &Service{
		store:       deps.Store,
		gateway:     deps.Gateway,
		cache:       deps.Cache,
		idem:        deps.Idempotency,
		audit:       deps.Audit,
		events:      pub,
		currency:    cfg.Currency,
		allowUnsign: cfg.AllowUnsignedVerification,
		logger:      logger.Named("order"),
		now:         time.Now,
	}
}

type CreateOrderInput struct {
	Items           []models.OrderItem     `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	// TotalAmount is trusted when positive; otherwise the item sum is used.
	TotalAmount float64 `json:"totalAmount"`
}

func (in CreateOrderInput) validate() error {
	if len(in.Items) == 0 {
		return apperror.InvalidInput("order must contain at least one item")
	}
	var sum float64
	for i, item := range in.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return apperror.InvalidInput("item %d: productId is required", i)
		}
		if item.Quantity < 1 {
			return apperror.InvalidInput("item %d: quantity must be at least 1", i)
		}
		if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			return apperror.InvalidInput("item %d: price must be a non-negative number", i)
		}
		sum += item.Subtotal()
		if sum > payment.MaxAmount {
			return apperror.InvalidInput("order total exceeds the maximum chargeable amount")
		}
	}
	addr := in.ShippingAddress
	if strings.TrimSpace(addr.Line1) == "" || strings.TrimSpace(addr.City) == "" || strings.TrimSpace(addr.PostalCode) == "" {
		return apperror.InvalidInput("shipping address requires line1, city and postalCode")
	}
	if in.TotalAmount < 0 || math.IsNaN(in.TotalAmount) || math.IsInf(in.TotalAmount, 0) {
		return apperror.InvalidInput("totalAmount must be a non-negative number")
	}
	if in.TotalAmount > payment.MaxAmount {
		return apperror.InvalidInput("order total exceeds the maximum chargeable amount")
	}
	return nil
}

// CreateOrder persists a new pending order for the caller. A non-empty
// idempotency key makes retries return the order created by the first call.
func (s *Service) CreateOrder(ctx context.Context, caller models.Principal, in CreateOrderInput, idemKey string) (*models.Order, error) {
	if caller.UserID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	scope := idempotencyScope + ":" + caller.UserID
	if idemKey != "" && s.idem != nil {
		if id, ok, err := s.idem.Recall(ctx, scope, idemKey); err != nil {
			s.logger.Warn("Idempotency recall failed", zap.Error(err))
		} else if ok {
			s.logger.Info("Replaying idempotent order creation", zap.String("order_id", id))
			return s.GetOrder(ctx, caller, id)
		}

		locked, err := s.idem.TryLock(ctx, scope, idemKey)
		switch {
		case err != nil:
			s.logger.Warn("Idempotency lock failed, continuing without it", zap.Error(err))
			idemKey = ""
		case !locked:
			return nil, apperror.Conflict("a request with this idempotency key is already in progress")
		}
	}

	order := &models.Order{
		ID:              uuid.NewString(),
		UserID:          caller.UserID,
		Items:           in.Items,
		ShippingAddress: in.ShippingAddress,
		Currency:        s.currency,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
	}
	order.TotalAmount = in.TotalAmount
	if order.TotalAmount <= 0 {
		order.TotalAmount = order.ItemsTotal()
	}

	if err := s.store.Create(ctx, order); err != nil {
		if idemKey != "" && s.idem != nil {
			if rerr := s.idem.Release(ctx, scope, idemKey); rerr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.Error(rerr))
			}
		}
		s.logger.Error("Failed to create order", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}

	if idemKey != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, scope, idemKey, order.ID); err != nil {
			s.logger.Warn("Failed to remember idempotency key", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	ordersCreated.Inc()
	s.cacheOrder(ctx, order)
	s.events.Publish(events.FromOrder(events.OrderCreated, order, caller.UserID, map[string]any{
		"totalAmount": order.TotalAmount,
		"items":       len(order.Items),
	}))

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Float64("total_amount", order.TotalAmount))

	return order, nil
}

// PaymentIntent is what the client needs to open the gateway checkout.
type PaymentIntent struct {
	payment.GatewayOrder
	KeyID string `json:"keyId"`
}

// CreatePaymentIntent opens a gateway order for the order's charge amount and
// records the gateway order id on the order.
func (s *Service) CreatePaymentIntent(ctx context.Context, caller models.Principal, orderID string) (*PaymentIntent, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, apperror.InvalidInput("orderId is required")
	}

	order, err := s.loadForCaller(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return nil, apperror.Conflict("order %s is already paid", orderID)
	}

	amount, err := payment.ToMinorUnits(order.ChargeAmount())
	if err != nil {
		paymentIntents.WithLabelValues("invalid_amount").Inc()
		return nil, err
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, amount, s.currency, order.ID)
	if err != nil {
		paymentIntents.WithLabelValues("gateway_error").Inc()
		return nil, err
	}

	updated, err := s.store.SetGatewayOrder(ctx, order.ID, gwOrder.ID)
	if err != nil {
		paymentIntents.WithLabelValues("store_error").Inc()
		s.logger.Error("Failed to record gateway order",
			zap.String("order_id", order.ID),
			zap.String("gateway_order_id", gwOrder.ID),
			zap.Error(err))
		return nil, err
	}
	s.refresh(ctx, updated)

	paymentIntents.WithLabelValues("created").Inc()
	s.events.Publish(events.FromOrder(events.PaymentIntentCreated, updated, caller.UserID, map[string]any{
		"gatewayOrderId": gwOrder.ID,
		"amount":         gwOrder.Amount,
		"currency":       gwOrder.Currency,
	}))

	return &PaymentIntent{GatewayOrder: gwOrder, KeyID: s.gateway.KeyID()}, nil
}

type VerifyPaymentInput struct {
	OrderID          string `json:"orderId"`
	GatewayPaymentID string `json:"razorpayPaymentId"`
	GatewayOrderID   string `json:"razorpayOrderId"`
	Signature        string `json:"razorpaySignature"`
}

// VerifyPayment checks the gateway signature and marks the order paid. A
// signature that does not verify yields false with a nil error; errors are
// reserved for bad input and infrastructure failures.
func (s *Service) VerifyPayment(ctx context.Context, caller models.Principal, in VerifyPaymentInput) (bool, error) {
	if strings.TrimSpace(in.OrderID) == "" || strings.TrimSpace(in.GatewayPaymentID) == "" {
		return false, apperror.InvalidInput("orderId and razorpayPaymentId are required")
	}

	signed := in.GatewayOrderID != "" && in.Signature != ""
	if !signed && !s.allowUnsign {
		return false, apperror.InvalidInput("razorpayOrderId and razorpaySignature are required")
	}

	order, err := s.loadForCaller(ctx, caller, in.OrderID)
	if err != nil {
		return false, err
	}

	log := s.logger.With(zap.String("order_id", order.ID), zap.String("payment_id", in.GatewayPaymentID))

	if signed {
		if order.GatewayOrderID == "" || order.GatewayOrderID != in.GatewayOrderID {
			paymentVerifications.WithLabelValues("order_mismatch").Inc()
			log.Warn("Gateway order id does not match the order",
				zap.String("gateway_order_id", in.GatewayOrderID))
			return false, nil
		}
		if !s.gateway.VerifySignature(in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
			paymentVerifications.WithLabelValues("invalid_signature").Inc()
			log.Warn("Payment signature mismatch")
			return false, nil
		}
	} else {
		log.Warn("Marking payment completed without signature verification")
	}

	if order.PaymentStatus == models.PaymentCompleted {
		if order.GatewayPaymentID == in.GatewayPaymentID {
			paymentVerifications.WithLabelValues("replayed").Inc()
			return true, nil
		}
		return false, apperror.Conflict("order %s is already paid", order.ID)
	}

	updated, err := s.store.MarkPaid(ctx, order.ID, in.GatewayPaymentID)
	if err != nil {
		log.Error("Failed to mark order paid", zap.Error(err))
		return false, err
	}
	s.refresh(ctx, updated)

	outcome := "verified"
	if !signed {
		outcome = "unsigned"
	}
	paymentVerifications.WithLabelValues(outcome).Inc()
	s.events.Publish(events.FromOrder(events.PaymentCompleted, updated, caller.UserID, map[string]any{
		"gatewayPaymentId": in.GatewayPaymentID,
		"verified":         signed,
	}))
	log.Info("Payment completed", zap.Bool("signed", signed))

	return true, nil
}

// MarkPaymentFailed records a failed payment attempt. A completed payment is
// never downgraded.
func (s *Service) MarkPaymentFailed(ctx context.Context, caller models.Principal, orderID, reason string) (*models.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, apperror.InvalidInput("orderId is required")
	}
	order, err := s.loadForCaller(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return nil, apperror.Conflict("order %s is already paid", orderID)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "payment failed"
	}
	reason = truncateRunes(reason, maxReasonLength)

	updated, err := s.store.MarkPaymentFailed(ctx, orderID, reason)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, updated)

	s.events.Publish(events.FromOrder(events.PaymentFailed, updated, caller.UserID, map[string]any{"reason": reason}))
	s.logger.Info("Payment marked failed", zap.String("order_id", orderID))

	return updated, nil
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// UpdateFulfillmentStatus sets any admin-settable status regardless of the
// current one, appending comment to the order's log when non-empty.
func (s *Service) UpdateFulfillmentStatus(ctx context.Context, caller models.Principal, orderID, status, comment string) (*models.Order, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("admin role required")
	}
	target, ok := models.ParseAdminStatus(status)
	if !ok {
		return nil, apperror.InvalidInput("invalid status %q", status)
	}

	var entry *models.AdminComment
	if text := strings.TrimSpace(comment); text != "" {
		entry = &models.AdminComment{
			Text:      text,
			Status:    target,
			Author:    caller.UserID,
			CreatedAt: s.now().UTC(),
		}
	}

	updated, err := s.store.UpdateStatus(ctx, orderID, target, entry)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, updated)

	detail := map[string]any{}
	if entry != nil {
		detail["comment"] = entry.Text
	}
	s.events.Publish(events.FromOrder(events.OrderStatusChanged, updated, caller.UserID, detail))
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(target)),
		zap.String("admin", caller.UserID))

	return updated, nil
}

// SubmitCustomerRequest opens a cancellation or return request on an order
// the caller owns, replacing any earlier request.
func (s *Service) SubmitCustomerRequest(ctx context.Context, caller models.Principal, orderID, requestType, reason string) (*models.Order, error) {
	typ, ok := models.ParseRequestType(requestType)
	if !ok {
		return nil, apperror.InvalidInput("invalid request type %q", requestType)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.InvalidInput("reason is required")
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, apperror.InvalidInput("reason must be at most %d characters", maxReasonLength)
	}

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(caller.UserID) {
		return nil, apperror.Forbidden("order %s does not belong to the caller", orderID)
	}
	if !order.CanRequest(typ) {
		return nil, apperror.InvalidInput("cannot request %s for an order that is %s", typ, order.Status)
	}

	req := models.CustomerRequest{
		Type:      typ,
		Reason:    reason,
		Status:    models.RequestPending,
		CreatedAt: s.now().UTC(),
	}
	updated, err := s.store.SetCustomerRequest(ctx, orderID, req, models.RequestableStatuses(typ))
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, updated)

	s.events.Publish(events.FromOrder(events.RequestSubmitted, updated, caller.UserID, map[string]any{
		"requestType": string(typ),
		"reason":      reason,
	}))
	s.logger.Info("Customer request submitted",
		zap.String("order_id", orderID),
		zap.String("type", string(typ)))

	return updated, nil
}

type ResolveInput struct {
	Status       string `json:"status"`
	AdminComment string `json:"adminComment"`
	// UpdateOrderStatus is applied together with an approval. It is ignored
	// for rejections.
	UpdateOrderStatus string `json:"updateOrderStatus"`
}

// ResolveCustomerRequest approves or rejects the order's request. An approval
// with UpdateOrderStatus changes the fulfillment status in the same write.
func (s *Service) ResolveCustomerRequest(ctx context.Context, caller models.Principal, orderID string, in ResolveInput) (*models.Order, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("admin role required")
	}
	status, ok := models.ParseResolution(in.Status)
	if !ok {
		return nil, apperror.InvalidInput("status must be approved or rejected")
	}

	var cascade *models.FulfillmentStatus
	if in.UpdateOrderStatus != "" && status == models.RequestApproved {
		target, ok := models.ParseAdminStatus(in.UpdateOrderStatus)
		if !ok {
			return nil, apperror.InvalidInput("invalid status %q", in.UpdateOrderStatus)
		}
		cascade = &target
	}

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerRequest == nil {
		return nil, apperror.InvalidInput("order %s has no customer request", orderID)
	}

	updated, err := s.store.ResolveCustomerRequest(ctx, orderID, repository.Resolution{
		Status:       status,
		AdminComment: strings.TrimSpace(in.AdminComment),
		Cascade:      cascade,
		Author:       caller.UserID,
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.InvalidInput("order %s has no customer request", orderID)
		}
		return nil, err
	}
	s.refresh(ctx, updated)

	detail := map[string]any{
		"requestType":   string(order.CustomerRequest.Type),
		"requestStatus": string(status),
	}
	if cascade != nil {
		detail["cascadedStatus"] = string(*cascade)
	}
	s.events.Publish(events.FromOrder(events.RequestResolved, updated, caller.UserID, detail))
	s.logger.Info("Customer request resolved",
		zap.String("order_id", orderID),
		zap.String("status", string(status)),
		zap.Bool("cascaded", cascade != nil))

	return updated, nil
}

// GetOrder reads through the cache. Only the owner or an admin may read.
func (s *Service) GetOrder(ctx context.Context, caller models.Principal, orderID string) (*models.Order, error) {
	if s.cache != nil {
		cached, err := s.cache.GetOrderCache(ctx, orderID)
		switch {
		case err == nil:
			if !caller.CanAccess(cached) {
				return nil, apperror.Forbidden("order %s does not belong to the caller", orderID)
			}
			return cached, nil
		case !errors.Is(err, repository.ErrCacheMiss):
			s.logger.Warn("Order cache read failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	order, err := s.loadForCaller(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	s.cacheOrder(ctx, order)
	return order, nil
}

// OrderPage is one page of a listing plus the total match count.
type OrderPage struct {
	Orders []*models.Order `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int64           `json:"limit"`
	Skip   int64           `json:"skip"`
}

func (s *Service) ListMyOrders(ctx context.Context, caller models.Principal, page models.Page) (*OrderPage, error) {
	if caller.UserID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	return s.list(ctx, models.OrderFilter{UserID: caller.UserID}, page)
}

func (s *Service) ListOrders(ctx context.Context, caller models.Principal, filter models.OrderFilter, page models.Page) (*OrderPage, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("admin role required")
	}
	return s.list(ctx, filter, page)
}

func (s *Service) list(ctx context.Context, filter models.OrderFilter, page models.Page) (*OrderPage, error) {
	orders, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return &OrderPage{Orders: orders, Total: total, Limit: page.Limit, Skip: page.Skip}, nil
}

// AuditTrail returns the most recent audit entries for an order.
func (s *Service) AuditTrail(ctx context.Context, caller models.Principal, orderID string) ([]*repository.AuditLog, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("admin role required")
	}
	if s.audit == nil {
		return []*repository.AuditLog{}, nil
	}
	if _, err := s.store.Get(ctx, orderID); err != nil {
		return nil, err
	}
	logs, err := s.audit.GetAuditLogs(ctx, orderID, maxAuditEntries)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*repository.AuditLog{}
	}
	return logs, nil
}

func (s *Service) loadForCaller(ctx context.Context, caller models.Principal, orderID string) (*models.Order, error) {
	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(order) {
		return nil, apperror.Forbidden("order %s does not belong to the caller", orderID)
	}
	return order, nil
}

func (s *Service) cacheOrder(ctx context.Context, order *models.Order) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheOrder(ctx, order); err != nil {
		s.logger.Warn("Failed to cache order", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// refresh replaces the cached copy with the document a mutation produced.
// If that fails the entry is dropped instead.
func (s *Service) refresh(ctx context.Context, order *models.Order) {
	if s.cache == nil {
		return
	}
	err := s.cache.CacheOrder(ctx, order)
	if err == nil {
		return
	}
	s.logger.Warn("Failed to refresh cached order", zap.String("order_id", order.ID), zap.Error(err))
	if err := s.cache.InvalidateOrder(ctx, order.ID); err != nil {
		s.logger.Warn("Failed to invalidate cached order", zap.String("order_id", order.ID), zap.Error(err))
	}
}
