package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

var (
	admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	owner = domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}
	other = domain.Actor{ID: "cust-2", Role: domain.RoleCustomer}
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("component", "lifecycle-test")
}

type fixture struct {
	engine   *Engine
	orders   *memory.OrderRepository
	products *memory.ProductRepository
	returns  *memory.ReturnRepository
	audit    *memory.AuditRepository
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository(products)
	returns := memory.NewReturnRepository()
	auditRepo := memory.NewAuditRepository()

	opts = append(opts, WithReturns(returns), WithAuditTrail(auditRepo))
	engine := NewEngine(orders, quietLogger(), opts...)
	engine.sleep = func(time.Duration) {}

	return &fixture{
		engine:   engine,
		orders:   orders,
		products: products,
		returns:  returns,
		audit:    auditRepo,
	}
}

func (f *fixture) seedProduct(t *testing.T, id string, stock int32) {
	t.Helper()
	if err := f.products.Create(domain.Product{
		ID:         id,
		SKU:        "SKU-" + id,
		Name:       "Organic Honey",
		PriceMinor: 45000,
		Stock:      stock,
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func (f *fixture) seedOrder(t *testing.T, order domain.Order) domain.Order {
	t.Helper()
	if order.Currency == "" {
		order.Currency = "INR"
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = domain.PaymentStatusPending
	}
	if order.CustomerID == "" {
		order.CustomerID = owner.ID
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().Add(-time.Hour)
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	if err := f.orders.Create(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	created, err := f.orders.Get(order.ID)
	if err != nil {
		t.Fatalf("reload seeded order: %v", err)
	}
	return created
}

func pendingOrder(id string, method domain.PaymentMethod, items ...domain.OrderItem) domain.Order {
	var subtotal int64
	for _, item := range items {
		subtotal += int64(item.Qty) * item.PriceMinor
	}
	return domain.Order{
		ID:            id,
		OrderNumber:   "ORD-" + id,
		Status:        domain.OrderStatusPending,
		PaymentMethod: method,
		SubtotalMinor: subtotal,
		ShippingMinor: 5000,
		TaxMinor:      2500,
		TotalMinor:    subtotal + 5000 + 2500,
		Items:         items,
	}
}

func item(productID string, qty int32) domain.OrderItem {
	return domain.OrderItem{
		ID:         "item-" + productID,
		ProductID:  productID,
		Qty:        qty,
		PriceMinor: 45000,
		OrderType:  domain.OrderTypeRetail,
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.OrderStatus
		actor    domain.Actor
		wantKind domain.Kind
	}{
		{name: "pending by admin succeeds", status: domain.OrderStatusPending, actor: admin},
		{name: "pending by customer forbidden", status: domain.OrderStatusPending, actor: owner, wantKind: domain.KindForbidden},
		{name: "processing rejected", status: domain.OrderStatusProcessing, actor: admin, wantKind: domain.KindInvalidTransition},
		{name: "shipped rejected", status: domain.OrderStatusShipped, actor: admin, wantKind: domain.KindInvalidTransition},
		{name: "delivered rejected", status: domain.OrderStatusDelivered, actor: admin, wantKind: domain.KindInvalidTransition},
		{name: "cancelled rejected", status: domain.OrderStatusCancelled, actor: admin, wantKind: domain.KindInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedProduct(t, "prod-1", 10)
			order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
			order.Status = tt.status
			f.seedOrder(t, order)

			updated, err := f.engine.Confirm(context.Background(), "order-1", tt.actor)

			if tt.wantKind != "" {
				if err == nil {
					t.Fatalf("expected %s error, got success", tt.wantKind)
				}
				if !domain.IsKind(err, tt.wantKind) {
					t.Fatalf("expected kind %s, got %s (%v)", tt.wantKind, domain.KindOf(err), err)
				}
				stored, _ := f.orders.Get("order-1")
				if stored.Status != tt.status {
					t.Errorf("status mutated on rejected confirm: %s", stored.Status)
				}
				return
			}

			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if updated.Status != domain.OrderStatusProcessing {
				t.Errorf("expected PROCESSING, got %s", updated.Status)
			}
		})
	}
}

func TestConfirm_PaymentDerivation(t *testing.T) {
	t.Run("online becomes paid", func(t *testing.T) {
		f := newFixture(t)
		f.seedProduct(t, "prod-1", 10)
		f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodOnline, item("prod-1", 1)))

		updated, err := f.engine.Confirm(context.Background(), "order-1", admin)
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if updated.PaymentStatus != domain.PaymentStatusPaid {
			t.Errorf("expected PAID for online payment, got %s", updated.PaymentStatus)
		}
	})

	t.Run("cod stays pending", func(t *testing.T) {
		f := newFixture(t)
		f.seedProduct(t, "prod-1", 10)
		f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 1)))

		updated, err := f.engine.Confirm(context.Background(), "order-1", admin)
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if updated.PaymentStatus != domain.PaymentStatusPending {
			t.Errorf("expected PENDING for COD, got %s", updated.PaymentStatus)
		}
	})
}

func TestConfirm_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Confirm(context.Background(), "missing", admin)

	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("expected kind NOT_FOUND, got %s", domain.KindOf(err))
	}
}

func TestShip(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
	order.Status = domain.OrderStatusProcessing
	f.seedOrder(t, order)

	updated, err := f.engine.Ship(context.Background(), "order-1", "TRK123", "delhivery", admin)

	if err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if updated.Status != domain.OrderStatusShipped {
		t.Errorf("expected SHIPPED, got %s", updated.Status)
	}
	if updated.TrackingNumber != "TRK123" {
		t.Errorf("expected tracking TRK123, got %s", updated.TrackingNumber)
	}
	if updated.CourierService != "delhivery" {
		t.Errorf("expected courier delhivery, got %s", updated.CourierService)
	}
}

func TestShip_MissingTrackingFields(t *testing.T) {
	tests := []struct {
		name     string
		tracking string
		courier  string
	}{
		{name: "empty tracking number", tracking: "", courier: "delhivery"},
		{name: "empty courier", tracking: "TRK123", courier: ""},
		{name: "both empty", tracking: "", courier: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedProduct(t, "prod-1", 10)
			order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
			order.Status = domain.OrderStatusProcessing
			f.seedOrder(t, order)

			_, err := f.engine.Ship(context.Background(), "order-1", tt.tracking, tt.courier, admin)

			if !domain.IsKind(err, domain.KindInvalidInput) {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
			stored, _ := f.orders.Get("order-1")
			if stored.Status != domain.OrderStatusProcessing {
				t.Errorf("status mutated on rejected ship: %s", stored.Status)
			}
		})
	}
}

func TestShip_WrongStatus(t *testing.T) {
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			f.seedProduct(t, "prod-1", 10)
			order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
			order.Status = status
			f.seedOrder(t, order)

			_, err := f.engine.Ship(context.Background(), "order-1", "TRK123", "delhivery", admin)

			if !domain.IsKind(err, domain.KindInvalidTransition) {
				t.Fatalf("expected INVALID_TRANSITION, got %v", err)
			}
		})
	}
}

func TestCancel_RestoresStockPerItem(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedProduct(t, "prod-2", 4)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD,
		item("prod-1", 3), item("prod-2", 2)))

	updated, err := f.engine.Cancel(context.Background(), "order-1", owner)

	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", updated.Status)
	}

	// Сток проверяется по каждому товару отдельно, не в сумме.
	p1, _ := f.products.Get("prod-1")
	if p1.Stock != 13 {
		t.Errorf("expected prod-1 stock 13, got %d", p1.Stock)
	}
	p2, _ := f.products.Get("prod-2")
	if p2.Stock != 6 {
		t.Errorf("expected prod-2 stock 6, got %d", p2.Stock)
	}
}

func TestCancel_SecondCallRejectedWithoutDoubleRestock(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 3)))

	if _, err := f.engine.Cancel(context.Background(), "order-1", owner); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}

	_, err := f.engine.Cancel(context.Background(), "order-1", owner)

	if !domain.IsKind(err, domain.KindInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION on second cancel, got %v", err)
	}

	p, _ := f.products.Get("prod-1")
	if p.Stock != 13 {
		t.Errorf("stock double-restored: expected 13, got %d", p.Stock)
	}
}

func TestCancel_Authorization(t *testing.T) {
	tests := []struct {
		name  string
		actor domain.Actor
	}{
		{name: "non-owner customer", actor: other},
		// Админской подмены владельца для отмены нет.
		{name: "admin", actor: admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedProduct(t, "prod-1", 10)
			f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 3)))

			_, err := f.engine.Cancel(context.Background(), "order-1", tt.actor)

			if !domain.IsKind(err, domain.KindForbidden) {
				t.Fatalf("expected FORBIDDEN, got %v", err)
			}
			p, _ := f.products.Get("prod-1")
			if p.Stock != 10 {
				t.Errorf("stock mutated on forbidden cancel: %d", p.Stock)
			}
		})
	}
}

func TestCancel_FromProcessing(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 3))
	order.Status = domain.OrderStatusProcessing
	f.seedOrder(t, order)

	updated, err := f.engine.Cancel(context.Background(), "order-1", owner)

	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", updated.Status)
	}
}

func TestMarkDelivered(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
	order.Status = domain.OrderStatusShipped
	order.TrackingNumber = "TRK123"
	order.CourierService = "delhivery"
	f.seedOrder(t, order)

	updated, err := f.engine.MarkDelivered(context.Background(), "order-1", admin)

	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if updated.Status != domain.OrderStatusDelivered {
		t.Errorf("expected DELIVERED, got %s", updated.Status)
	}
}

func TestMarkDelivered_WrongStatus(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

	_, err := f.engine.MarkDelivered(context.Background(), "order-1", admin)

	if !domain.IsKind(err, domain.KindInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestForceTracking(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	// Заказ в PENDING: обычный ship здесь запрещён, форс — нет.
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

	updated, err := f.engine.ForceTracking(context.Background(), "order-1", "TRK999", "delhivery", "", admin)

	if err != nil {
		t.Fatalf("ForceTracking: %v", err)
	}
	if updated.Status != domain.OrderStatusShipped {
		t.Errorf("expected default SHIPPED, got %s", updated.Status)
	}
	if updated.TrackingNumber != "TRK999" {
		t.Errorf("expected tracking TRK999, got %s", updated.TrackingNumber)
	}
}

func TestForceTracking_ExplicitStatus(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

	// Регистр входного статуса не важен, хранится каноническая форма.
	updated, err := f.engine.ForceTracking(context.Background(), "order-1", "TRK999", "delhivery", "delivered", admin)

	if err != nil {
		t.Fatalf("ForceTracking: %v", err)
	}
	if updated.Status != domain.OrderStatusDelivered {
		t.Errorf("expected DELIVERED, got %s", updated.Status)
	}
}

func TestForceTracking_Validation(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := f.engine.ForceTracking(context.Background(), "order-1", "TRK999", "delhivery", "TELEPORTED", admin)
		if !domain.IsKind(err, domain.KindInvalidInput) {
			t.Fatalf("expected INVALID_INPUT, got %v", err)
		}
	})

	t.Run("empty tracking rejected", func(t *testing.T) {
		_, err := f.engine.ForceTracking(context.Background(), "order-1", "", "delhivery", "", admin)
		if !domain.IsKind(err, domain.KindInvalidInput) {
			t.Fatalf("expected INVALID_INPUT, got %v", err)
		}
	})

	t.Run("customer forbidden", func(t *testing.T) {
		_, err := f.engine.ForceTracking(context.Background(), "order-1", "TRK999", "delhivery", "", owner)
		if !domain.IsKind(err, domain.KindForbidden) {
			t.Fatalf("expected FORBIDDEN, got %v", err)
		}
	})
}

func TestForceTracking_Audited(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

	sink := &captureSink{}
	f.engine.audit = sink

	if _, err := f.engine.ForceTracking(context.Background(), "order-1", "TRK999", "delhivery", "", admin); err != nil {
		t.Fatalf("ForceTracking: %v", err)
	}

	if len(sink.actions) != 1 || sink.actions[0] != domain.OpForceTracking {
		t.Fatalf("expected distinct forced-override audit action, got %v", sink.actions)
	}
	if sink.details[0]["previous_status"] != string(domain.OrderStatusPending) {
		t.Errorf("expected previous status PENDING in audit details, got %v", sink.details[0]["previous_status"])
	}
}

type captureSink struct {
	actions []domain.Operation
	details []map[string]any
}

func (s *captureSink) Record(_ context.Context, _ string, action domain.Operation, details map[string]any) {
	s.actions = append(s.actions, action)
	s.details = append(s.details, details)
}

func TestRequestReturn(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
	order.Status = domain.OrderStatusDelivered
	order.UpdatedAt = time.Now().Add(-2 * 24 * time.Hour)
	f.seedOrder(t, order)

	request, err := f.engine.RequestReturn(context.Background(), "order-1", "damaged packaging", owner)

	if err != nil {
		t.Fatalf("RequestReturn: %v", err)
	}
	if request.Status != domain.ReturnStatusRequested {
		t.Errorf("expected REQUESTED, got %s", request.Status)
	}
	if request.OrderID != "order-1" {
		t.Errorf("expected order-1, got %s", request.OrderID)
	}

	stored, err := f.returns.ListByOrder("order-1")
	if err != nil {
		t.Fatalf("ListByOrder: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored request, got %d", len(stored))
	}
}

func TestRequestReturn_Rejections(t *testing.T) {
	t.Run("outside window", func(t *testing.T) {
		f := newFixture(t)
		f.seedProduct(t, "prod-1", 10)
		order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
		order.Status = domain.OrderStatusDelivered
		order.UpdatedAt = time.Now().Add(-8 * 24 * time.Hour)
		f.seedOrder(t, order)

		_, err := f.engine.RequestReturn(context.Background(), "order-1", "too late", owner)
		if !domain.IsKind(err, domain.KindInvalidTransition) {
			t.Fatalf("expected INVALID_TRANSITION, got %v", err)
		}
	})

	t.Run("not delivered", func(t *testing.T) {
		f := newFixture(t)
		f.seedProduct(t, "prod-1", 10)
		f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

		_, err := f.engine.RequestReturn(context.Background(), "order-1", "changed my mind", owner)
		if !domain.IsKind(err, domain.KindInvalidTransition) {
			t.Fatalf("expected INVALID_TRANSITION, got %v", err)
		}
	})

	t.Run("non-owner", func(t *testing.T) {
		f := newFixture(t)
		f.seedProduct(t, "prod-1", 10)
		order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
		order.Status = domain.OrderStatusDelivered
		order.UpdatedAt = time.Now()
		f.seedOrder(t, order)

		_, err := f.engine.RequestReturn(context.Background(), "order-1", "not mine", other)
		if !domain.IsKind(err, domain.KindForbidden) {
			t.Fatalf("expected FORBIDDEN, got %v", err)
		}
	})

	t.Run("empty reason", func(t *testing.T) {
		f := newFixture(t)
		f.seedProduct(t, "prod-1", 10)
		order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
		order.Status = domain.OrderStatusDelivered
		order.UpdatedAt = time.Now()
		f.seedOrder(t, order)

		_, err := f.engine.RequestReturn(context.Background(), "order-1", "", owner)
		if !domain.IsKind(err, domain.KindInvalidInput) {
			t.Fatalf("expected INVALID_INPUT, got %v", err)
		}
	})
}

type stubTracker struct {
	record *domain.TrackingRecord
	err    error
	calls  int
}

func (s *stubTracker) Track(_ context.Context, trackingNumber, _ string) (*domain.TrackingRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	record := *s.record
	record.TrackingNumber = trackingNumber
	return &record, nil
}

func (s *stubTracker) TrackMany(ctx context.Context, numbers []string, courier string) []domain.TrackingResult {
	results := make([]domain.TrackingResult, 0, len(numbers))
	for _, n := range numbers {
		record, err := s.Track(ctx, n, courier)
		if err != nil {
			results = append(results, domain.TrackingResult{TrackingNumber: n, Err: err.Error()})
			continue
		}
		results = append(results, domain.TrackingResult{TrackingNumber: n, Record: record})
	}
	return results
}

func TestGet_TrackingEnrichment(t *testing.T) {
	tracker := &stubTracker{record: &domain.TrackingRecord{
		Courier:       "delhivery",
		CurrentStatus: "In Transit",
	}}

	f := newFixture(t, WithTracker(tracker))
	f.seedProduct(t, "prod-1", 10)
	order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
	order.Status = domain.OrderStatusShipped
	order.TrackingNumber = "TRK123"
	order.CourierService = "delhivery"
	f.seedOrder(t, order)

	projection, err := f.engine.Get(context.Background(), "order-1", owner)

	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if projection.Tracking == nil {
		t.Fatal("expected tracking enrichment")
	}
	if projection.Tracking.CurrentStatus != "In Transit" {
		t.Errorf("expected In Transit, got %s", projection.Tracking.CurrentStatus)
	}
}

func TestGet_TrackerFailureDegrades(t *testing.T) {
	tracker := &stubTracker{err: domain.E(domain.KindUpstreamUnavailable, "provider down")}

	f := newFixture(t, WithTracker(tracker))
	f.seedProduct(t, "prod-1", 10)
	order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
	order.Status = domain.OrderStatusShipped
	order.TrackingNumber = "TRK123"
	f.seedOrder(t, order)

	projection, err := f.engine.Get(context.Background(), "order-1", owner)

	// Сбой провайдера не роняет чтение заказа.
	if err != nil {
		t.Fatalf("Get should degrade, got error: %v", err)
	}
	if projection.Tracking != nil {
		t.Error("expected no tracking data")
	}
	if !projection.TrackingUnavailable {
		t.Error("expected TrackingUnavailable flag")
	}
	if projection.Order.ID != "order-1" {
		t.Errorf("order payload missing: %+v", projection.Order)
	}
}

func TestGet_NoTrackingAssigned(t *testing.T) {
	tracker := &stubTracker{record: &domain.TrackingRecord{}}

	f := newFixture(t, WithTracker(tracker))
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

	projection, err := f.engine.Get(context.Background(), "order-1", owner)

	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if projection.Tracking != nil {
		t.Error("expected no enrichment for order without tracking")
	}
	if tracker.calls != 0 {
		t.Errorf("tracker called for order without tracking: %d", tracker.calls)
	}
}

func TestGet_Authorization(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

	if _, err := f.engine.Get(context.Background(), "order-1", admin); err != nil {
		t.Errorf("admin read should succeed: %v", err)
	}
	if _, err := f.engine.Get(context.Background(), "order-1", owner); err != nil {
		t.Errorf("owner read should succeed: %v", err)
	}

	_, err := f.engine.Get(context.Background(), "order-1", other)
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected FORBIDDEN for foreign customer, got %v", err)
	}
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2)))

	if err := f.audit.Append(domain.AuditRecord{
		ID:      "rec-1",
		ActorID: admin.ID,
		Action:  domain.OpConfirm,
		OrderID: "order-1",
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := f.engine.AuditTrail(context.Background(), "order-1", owner)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	_, err = f.engine.AuditTrail(context.Background(), "order-1", other)
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

// conflictingOrders подсовывает конфликт версий на первых n сохранениях.
type conflictingOrders struct {
	domain.OrderRepository
	conflicts int
	saves     int
}

func (r *conflictingOrders) Save(order domain.Order) error {
	r.saves++
	if r.saves <= r.conflicts {
		return domain.ErrOrderVersionConflict
	}
	return r.OrderRepository.Save(order)
}

func TestTransition_RetriesVersionConflict(t *testing.T) {
	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository(products)
	wrapped := &conflictingOrders{OrderRepository: orders, conflicts: 2}

	engine := NewEngine(wrapped, quietLogger())
	engine.sleep = func(time.Duration) {}

	if err := products.Create(domain.Product{ID: "prod-1", Stock: 10}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
	order.CustomerID = owner.ID
	order.Currency = "INR"
	order.PaymentStatus = domain.PaymentStatusPending
	if err := orders.Create(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	updated, err := engine.Confirm(context.Background(), "order-1", admin)

	if err != nil {
		t.Fatalf("Confirm after conflicts: %v", err)
	}
	if updated.Status != domain.OrderStatusProcessing {
		t.Errorf("expected PROCESSING, got %s", updated.Status)
	}
	if wrapped.saves != 3 {
		t.Errorf("expected 3 save attempts, got %d", wrapped.saves)
	}
}

func TestTransition_ConflictRetriesExhausted(t *testing.T) {
	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository(products)
	wrapped := &conflictingOrders{OrderRepository: orders, conflicts: 10}

	engine := NewEngine(wrapped, quietLogger())
	engine.sleep = func(time.Duration) {}

	if err := products.Create(domain.Product{ID: "prod-1", Stock: 10}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	order := pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 2))
	order.CustomerID = owner.ID
	order.Currency = "INR"
	order.PaymentStatus = domain.PaymentStatusPending
	if err := orders.Create(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	_, err := engine.Confirm(context.Background(), "order-1", admin)

	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !domain.IsVersionConflict(err) {
		t.Errorf("expected version conflict cause, got %v", err)
	}
}

// Сквозной сценарий: COD-заказ проходит confirm → ship, после чего отмена
// владельцем отклоняется, потому что заказ уже отгружен.
func TestEndToEnd_CODOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "prod-1", 10)
	f.seedOrder(t, pendingOrder("order-1", domain.PaymentMethodCOD, item("prod-1", 3)))

	ctx := context.Background()

	confirmed, err := f.engine.Confirm(ctx, "order-1", admin)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", confirmed.Status)
	}
	if confirmed.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("COD payment must stay PENDING, got %s", confirmed.PaymentStatus)
	}

	shipped, err := f.engine.Ship(ctx, "order-1", "TRK123", "delhivery", admin)
	if err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if shipped.Status != domain.OrderStatusShipped {
		t.Fatalf("expected SHIPPED, got %s", shipped.Status)
	}
	if shipped.TrackingNumber != "TRK123" {
		t.Fatalf("expected TRK123, got %s", shipped.TrackingNumber)
	}

	_, err = f.engine.Cancel(ctx, "order-1", owner)
	if !domain.IsKind(err, domain.KindInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION for shipped order, got %v", err)
	}

	// Сток не тронут: заказ так и не был отменён.
	p, _ := f.products.Get("prod-1")
	if p.Stock != 10 {
		t.Errorf("stock mutated by rejected cancel: %d", p.Stock)
	}
}
