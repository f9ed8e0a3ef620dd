package order

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/events"
	"github.com/example/jewelshop/pkg/models"
	"github.com/example/jewelshop/pkg/payment"
	"github.com/example/jewelshop/pkg/repository"
)

// memStore mimics the Mongo order store's guards and NotFound/Conflict split.
type memStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	writes int
	err    error
}

func newMemStore(orders ...*models.Order) *memStore {
	s := &memStore{orders: map[string]*models.Order{}}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func clone(o *models.Order) *models.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.Comments = slices.Clone(o.Comments)
	if o.CustomerRequest != nil {
		r := *o.CustomerRequest
		c.CustomerRequest = &r
	}
	return &c
}

func (s *memStore) get(id string) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return clone(o)
	}
	return nil
}

func (s *memStore) Create(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.orders[order.ID]; ok {
		return apperror.Conflict("order %s already exists", order.ID)
	}
	s.writes++
	s.orders[order.ID] = clone(order)
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperror.NotFound("order %s not found", id)
	}
	return clone(o), nil
}

func (s *memStore) List(_ context.Context, filter models.OrderFilter, page models.Page) ([]*models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Order
	for _, o := range s.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, clone(o))
	}
	return out, int64(len(out)), nil
}

func (s *memStore) mutate(id string, guard func(*models.Order) bool, fn func(*models.Order)) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperror.NotFound("order %s not found", id)
	}
	if guard != nil && !guard(o) {
		return nil, apperror.Conflict("order %s changed concurrently", id)
	}
	s.writes++
	fn(o)
	o.UpdatedAt = time.Now().UTC()
	return clone(o), nil
}

func (s *memStore) SetGatewayOrder(_ context.Context, id, gatewayOrderID string) (*models.Order, error) {
	return s.mutate(id, nil, func(o *models.Order) { o.GatewayOrderID = gatewayOrderID })
}

func (s *memStore) MarkPaid(_ context.Context, id, gatewayPaymentID string) (*models.Order, error) {
	return s.mutate(id, nil, func(o *models.Order) {
		o.PaymentStatus = models.PaymentCompleted
		o.GatewayPaymentID = gatewayPaymentID
		o.PaymentFailureReason = ""
	})
}

func (s *memStore) MarkPaymentFailed(_ context.Context, id, reason string) (*models.Order, error) {
	guard := func(o *models.Order) bool { return o.PaymentStatus != models.PaymentCompleted }
	return s.mutate(id, guard, func(o *models.Order) {
		o.PaymentStatus = models.PaymentFailed
		o.PaymentFailureReason = reason
	})
}

func (s *memStore) UpdateStatus(_ context.Context, id string, status models.FulfillmentStatus, comment *models.AdminComment) (*models.Order, error) {
	return s.mutate(id, nil, func(o *models.Order) {
		o.Status = status
		if comment != nil {
			o.Comments = append(o.Comments, *comment)
		}
	})
}

func (s *memStore) SetCustomerRequest(_ context.Context, id string, req models.CustomerRequest, allowed []models.FulfillmentStatus) (*models.Order, error) {
	guard := func(o *models.Order) bool { return slices.Contains(allowed, o.Status) }
	return s.mutate(id, guard, func(o *models.Order) { o.CustomerRequest = &req })
}

func (s *memStore) ResolveCustomerRequest(_ context.Context, id string, res repository.Resolution) (*models.Order, error) {
	guard := func(o *models.Order) bool { return o.CustomerRequest != nil }
	return s.mutate(id, guard, func(o *models.Order) {
		now := time.Now().UTC()
		o.CustomerRequest.Status = res.Status
		o.CustomerRequest.ResolvedAt = &now
		if res.AdminComment != "" {
			o.CustomerRequest.AdminComment = res.AdminComment
		}
		if res.Cascade != nil {
			o.Status = *res.Cascade
			o.Comments = append(o.Comments, models.AdminComment{Text: res.AdminComment, Status: *res.Cascade, Author: res.Author, CreatedAt: now})
		}
	})
}

type fakeGateway struct {
	createFn  func(ctx context.Context, amountMinor int64, currency, receipt string) (payment.GatewayOrder, error)
	secret    string
	calls     int
	lastMinor int64
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (payment.GatewayOrder, error) {
	g.calls++
	g.lastMinor = amountMinor
	if g.createFn != nil {
		return g.createFn(ctx, amountMinor, currency, receipt)
	}
	return payment.GatewayOrder{ID: "order_gw_" + receipt, Amount: amountMinor, Currency: currency, Receipt: receipt}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(orderID, paymentID, signature, g.secret)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

// memCache refuses copies older than the newest one it has stored, like the
// redis cache.
type memCache struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	versions    map[string]time.Time
	invalidated []string
	err         error
	setErr      error
}

func newMemCache() *memCache {
	return &memCache{orders: map[string]*models.Order{}, versions: map[string]time.Time{}}
}

func (c *memCache) GetOrderCache(_ context.Context, id string) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	o, ok := c.orders[id]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return clone(o), nil
}

func (c *memCache) CacheOrder(_ context.Context, o *models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.setErr != nil {
		return c.setErr
	}
	if v, ok := c.versions[o.ID]; ok && o.UpdatedAt.Before(v) {
		return nil
	}
	c.orders[o.ID] = clone(o)
	c.versions[o.ID] = o.UpdatedAt
	return nil
}

func (c *memCache) InvalidateOrder(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	delete(c.orders, id)
	return c.err
}

type memIdempotency struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *memIdempotency) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + ":" + key
	if m.locks[k] {
		return false, nil
	}
	m.locks[k] = true
	return true, nil
}

func (m *memIdempotency) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+":"+key)
	return nil
}

func (m *memIdempotency) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+":"+key] = value
	return nil
}

func (m *memIdempotency) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+":"+key]
	return v, ok, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeAudit struct {
	logs []*repository.AuditLog
}

func (f *fakeAudit) GetAuditLogs(_ context.Context, entityID string, _ int64) ([]*repository.AuditLog, error) {
	var out []*repository.AuditLog
	for _, l := range f.logs {
		if l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}
