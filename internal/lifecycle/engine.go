// Package lifecycle реализует машину состояний заказа: проверку
// предусловий, выполнение переходов и компенсирующие побочные эффекты.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// OrderProjection — ответ читающего пути: заказ плюс необязательное
// обогащение данными курьерского трекинга.
type OrderProjection struct {
	Order domain.Order
	// Tracking nil, если трек-номер не назначен или провайдер недоступен.
	Tracking *domain.TrackingRecord
	// TrackingUnavailable выставляется, когда провайдер ответил ошибкой:
	// чтение заказа при этом не падает.
	TrackingUnavailable bool
}

// Engine выполняет переходы жизненного цикла поверх репозиториев.
// Экземпляр не хранит состояние между вызовами: всё состояние в хранилище.
type Engine struct {
	orders  domain.OrderRepository
	returns domain.ReturnRepository
	tracker domain.CourierTracker
	audit   domain.AuditSink
	trail   domain.AuditRepository
	logger  *log.Entry
	metrics *metrics.LifecycleMetrics
	now     func() time.Time
	sleep   func(time.Duration)
}

// Option настраивает Engine.
type Option func(*Engine)

// WithTracker подключает курьерский трекинг к читающему пути.
func WithTracker(tracker domain.CourierTracker) Option {
	return func(e *Engine) { e.tracker = tracker }
}

// WithAudit подключает приёмник аудита.
func WithAudit(sink domain.AuditSink) Option {
	return func(e *Engine) { e.audit = sink }
}

// WithAuditTrail подключает журнал аудита для чтения истории заказа.
func WithAuditTrail(trail domain.AuditRepository) Option {
	return func(e *Engine) { e.trail = trail }
}

// WithMetrics подключает метрики переходов.
func WithMetrics(m *metrics.LifecycleMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithReturns подключает хранилище заявок на возврат.
func WithReturns(returns domain.ReturnRepository) Option {
	return func(e *Engine) { e.returns = returns }
}

// NewEngine создаёт движок жизненного цикла.
func NewEngine(orders domain.OrderRepository, logger *log.Entry, opts ...Option) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "lifecycle")
	}
	e := &Engine{
		orders: orders,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Confirm подтверждает заказ: PENDING → PROCESSING. Только администратор.
// Для ONLINE-оплаты статус платежа становится PAID (захват уже произошёл
// выше по потоку), для COD остаётся PENDING до внешнего расчёта.
func (e *Engine) Confirm(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error) {
	order, err := e.transition(ctx, orderID, actor, domain.OpConfirm, func(o *domain.Order) error {
		if o.Status != domain.OrderStatusPending {
			return domain.Errorf(domain.KindInvalidTransition,
				"cannot confirm order in status %s", o.Status)
		}
		o.Status = domain.OrderStatusProcessing
		if o.PaymentMethod == domain.PaymentMethodOnline {
			o.PaymentStatus = domain.PaymentStatusPaid
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	e.record(ctx, actor, domain.OpConfirm, map[string]any{
		"order_id":       order.ID,
		"status":         string(order.Status),
		"payment_status": string(order.PaymentStatus),
	})
	return order, nil
}

// Ship передаёт заказ курьеру: PROCESSING → SHIPPED.
// Оба поля трекинга обязательны.
func (e *Engine) Ship(ctx context.Context, orderID, trackingNumber, courierService string, actor domain.Actor) (domain.Order, error) {
	if trackingNumber == "" || courierService == "" {
		e.reject(domain.OpShip)
		return domain.Order{}, domain.E(domain.KindInvalidInput,
			"tracking number and courier service are required")
	}

	order, err := e.transition(ctx, orderID, actor, domain.OpShip, func(o *domain.Order) error {
		if o.Status != domain.OrderStatusProcessing {
			return domain.Errorf(domain.KindInvalidTransition,
				"cannot ship order in status %s", o.Status)
		}
		o.Status = domain.OrderStatusShipped
		o.TrackingNumber = trackingNumber
		o.CourierService = courierService
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	e.record(ctx, actor, domain.OpShip, map[string]any{
		"order_id":        order.ID,
		"status":          string(order.Status),
		"tracking_number": order.TrackingNumber,
		"courier_service": order.CourierService,
	})
	return order, nil
}

// Cancel отменяет заказ владельца: PENDING/PROCESSING → CANCELLED.
// Статус и возврат стока по каждой позиции фиксируются одной транзакцией:
// повторная отмена отклоняется и никогда не удваивает сток.
func (e *Engine) Cancel(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error) {
	order, err := e.transition(ctx, orderID, actor, domain.OpCancel, func(o *domain.Order) error {
		if !o.Status.Cancellable() {
			return domain.Errorf(domain.KindInvalidTransition,
				"cannot cancel order in status %s", o.Status)
		}
		o.Status = domain.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	e.record(ctx, actor, domain.OpCancel, map[string]any{
		"order_id":       order.ID,
		"status":         string(order.Status),
		"restocked_skus": len(order.Items),
	})
	return order, nil
}

// MarkDelivered завершает доставку: SHIPPED → DELIVERED. Только администратор.
func (e *Engine) MarkDelivered(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error) {
	order, err := e.transition(ctx, orderID, actor, domain.OpDeliver, func(o *domain.Order) error {
		if o.Status != domain.OrderStatusShipped {
			return domain.Errorf(domain.KindInvalidTransition,
				"cannot deliver order in status %s", o.Status)
		}
		o.Status = domain.OrderStatusDelivered
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	e.record(ctx, actor, domain.OpDeliver, map[string]any{
		"order_id": order.ID,
		"status":   string(order.Status),
	})
	return order, nil
}

// ForceTracking — привилегированная коррекция данных трекинга в обход
// предусловий машины состояний. Статус по умолчанию SHIPPED; явно
// переданный статус обязан входить в закрытый словарь. Каждое применение
// фиксируется в аудите отдельным действием.
func (e *Engine) ForceTracking(ctx context.Context, orderID, trackingNumber, courierService, rawStatus string, actor domain.Actor) (domain.Order, error) {
	if trackingNumber == "" {
		e.reject(domain.OpForceTracking)
		return domain.Order{}, domain.E(domain.KindInvalidInput, "tracking number is required")
	}

	status := domain.OrderStatusShipped
	if rawStatus != "" {
		parsed, err := domain.ParseOrderStatus(rawStatus)
		if err != nil {
			e.reject(domain.OpForceTracking)
			return domain.Order{}, err
		}
		status = parsed
	}

	var previous domain.OrderStatus
	order, err := e.transition(ctx, orderID, actor, domain.OpForceTracking, func(o *domain.Order) error {
		previous = o.Status
		o.TrackingNumber = trackingNumber
		if courierService != "" {
			o.CourierService = courierService
		}
		o.Status = status
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	e.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"actor_id": actor.ID,
		"from":     string(previous),
		"to":       string(order.Status),
	}).Warn("tracking forced outside the state machine")

	e.record(ctx, actor, domain.OpForceTracking, map[string]any{
		"order_id":        order.ID,
		"status":          string(order.Status),
		"previous_status": string(previous),
		"tracking_number": order.TrackingNumber,
		"courier_service": order.CourierService,
	})
	return order, nil
}

// RequestReturn создаёт заявку на возврат: только владелец, только для
// DELIVERED и только в пределах окна возврата.
func (e *Engine) RequestReturn(ctx context.Context, orderID, reason string, actor domain.Actor) (domain.ReturnRequest, error) {
	start := e.now()

	if e.returns == nil {
		return domain.ReturnRequest{}, domain.E(domain.KindInternal, "returns are not enabled")
	}
	if reason == "" {
		e.reject(domain.OpRequestReturn)
		return domain.ReturnRequest{}, domain.E(domain.KindInvalidInput, "return reason is required")
	}

	order, err := e.orders.Get(orderID)
	if err != nil {
		e.observe(domain.OpRequestReturn, start, err)
		return domain.ReturnRequest{}, err
	}
	if err := domain.Authorize(actor, domain.OpRequestReturn, &order); err != nil {
		e.observe(domain.OpRequestReturn, start, err)
		return domain.ReturnRequest{}, err
	}
	if !order.EligibleForReturn(e.now()) {
		err := domain.Errorf(domain.KindInvalidTransition,
			"order in status %s is not eligible for return", order.Status)
		e.observe(domain.OpRequestReturn, start, err)
		return domain.ReturnRequest{}, err
	}

	request := domain.ReturnRequest{
		ID:         uuid.New().String(),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Reason:     reason,
		Status:     domain.ReturnStatusRequested,
		CreatedAt:  e.now(),
	}
	if err := e.returns.Create(request); err != nil {
		e.observe(domain.OpRequestReturn, start, err)
		return domain.ReturnRequest{}, err
	}

	e.observe(domain.OpRequestReturn, start, nil)
	e.record(ctx, actor, domain.OpRequestReturn, map[string]any{
		"order_id":  order.ID,
		"return_id": request.ID,
		"reason":    reason,
	})
	return request, nil
}

// Get возвращает проекцию заказа, обогащённую трекингом. Сбой провайдера
// деградирует до "нет данных в реальном времени" и не роняет чтение.
func (e *Engine) Get(ctx context.Context, orderID string, actor domain.Actor) (OrderProjection, error) {
	order, err := e.orders.Get(orderID)
	if err != nil {
		return OrderProjection{}, err
	}
	if err := domain.Authorize(actor, domain.OpRead, &order); err != nil {
		return OrderProjection{}, err
	}

	projection := OrderProjection{Order: order}
	if e.tracker == nil || !order.TrackingAssigned() {
		return projection, nil
	}

	record, err := e.tracker.Track(ctx, order.TrackingNumber, order.CourierService)
	if err != nil {
		e.logger.WithError(err).WithField("order_id", order.ID).
			Warn("courier tracking unavailable, serving order without enrichment")
		projection.TrackingUnavailable = true
		return projection, nil
	}
	projection.Tracking = record
	return projection, nil
}

// AuditTrail возвращает историю действий по заказу. Владелец или администратор.
func (e *Engine) AuditTrail(_ context.Context, orderID string, actor domain.Actor) ([]domain.AuditRecord, error) {
	if e.trail == nil {
		return nil, domain.E(domain.KindInternal, "audit trail is not enabled")
	}

	order, err := e.orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, domain.OpRead, &order); err != nil {
		return nil, err
	}
	return e.trail.ListByOrder(orderID)
}

const (
	maxSaveRetries = 3
	saveBaseDelay  = 10 * time.Millisecond
)

// transition выполняет цикл чтение-проверка-запись одной операции.
// Предусловия проверяются до любой мутации; при конфликте версий заказ
// перечитывается и предусловия проверяются заново до maxSaveRetries раз.
func (e *Engine) transition(ctx context.Context, orderID string, actor domain.Actor, op domain.Operation, mutate func(*domain.Order) error) (domain.Order, error) {
	start := e.now()

	order, err := e.orders.Get(orderID)
	if err != nil {
		e.observe(op, start, err)
		return domain.Order{}, err
	}

	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		if err := domain.Authorize(actor, op, &order); err != nil {
			e.observe(op, start, err)
			return domain.Order{}, err
		}
		if err := mutate(&order); err != nil {
			e.observe(op, start, err)
			return domain.Order{}, err
		}
		order.UpdatedAt = e.now().UTC()

		err := e.save(order, op)
		if err == nil {
			// Версия выросла при сохранении.
			order.Version++
			e.observe(op, start, nil)
			return order, nil
		}

		if domain.IsVersionConflict(err) && attempt < maxSaveRetries-1 {
			if e.metrics != nil {
				e.metrics.RecordVersionConflictRetry()
			}
			e.logger.WithFields(log.Fields{
				"order_id": orderID,
				"attempt":  attempt + 1,
				"version":  order.Version,
			}).Warn("version conflict detected, retrying")

			fresh, loadErr := e.orders.Get(orderID)
			if loadErr != nil {
				e.observe(op, start, loadErr)
				return domain.Order{}, loadErr
			}
			order = fresh

			e.sleep(saveBaseDelay * time.Duration(1<<uint(attempt)))
			continue
		}

		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"attempt":  attempt + 1,
		}).Error("failed to persist transition")
		e.observe(op, start, err)
		return domain.Order{}, err
	}

	err = domain.Wrap(domain.KindInternal, "transition retries exhausted", domain.ErrOrderVersionConflict)
	e.observe(op, start, err)
	return domain.Order{}, err
}

// save выбирает способ записи: отмена фиксирует статус и возврат стока
// одной транзакцией, остальные переходы обходятся обычным Save.
func (e *Engine) save(order domain.Order, op domain.Operation) error {
	if op == domain.OpCancel {
		return e.orders.SaveWithRestock(order, domain.RestockFor(order.Items))
	}
	return e.orders.Save(order)
}

func (e *Engine) record(ctx context.Context, actor domain.Actor, op domain.Operation, details map[string]any) {
	if e.audit == nil {
		return
	}
	e.audit.Record(ctx, actor.ID, op, details)
}

// observe фиксирует исход и длительность операции.
func (e *Engine) observe(op domain.Operation, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindNotFound, domain.KindForbidden,
			domain.KindInvalidInput, domain.KindInvalidTransition:
			outcome = "rejected"
		default:
			outcome = "error"
		}
	}
	e.metrics.RecordTransition(string(op), outcome)
	e.metrics.RecordTransitionDuration(string(op), e.now().Sub(start))
}

func (e *Engine) reject(op domain.Operation) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordTransition(string(op), "rejected")
}
