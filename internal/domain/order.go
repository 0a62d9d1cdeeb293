package domain

import (
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа витрины.
// Токены хранятся в верхнем регистре бит-в-бит — внешняя отчётность
// и уже сохранённые данные зависят от этого словаря.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, ожидает подтверждения администратором.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusConfirmed — значение присутствует в схеме, но ни один
	// переход его не выставляет (подтверждение ведёт сразу в PROCESSING).
	// Сохранено для совместимости со словарём хранимых статусов.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusProcessing — заказ подтверждён и собирается на складе.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped — заказ передан курьерской службе, трек-номер назначен.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered — заказ доставлен получателю (терминальный).
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled — заказ отменён, резерв возвращён на склад (терминальный).
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderType различает розничные и оптовые позиции.
type OrderType string

const (
	OrderTypeRetail    OrderType = "RETAIL"
	OrderTypeWholesale OrderType = "WHOLESALE"
)

// IsValid сообщает, входит ли значение в закрытый словарь статусов.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, что из статуса нет ни одного перехода.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Cancellable сообщает, допускает ли статус отмену заказа.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// CanTransitionTo проверяет легальность перехода по машине состояний.
// Прямой путь: PENDING → PROCESSING → SHIPPED → DELIVERED;
// CANCELLED достижим только из PENDING и PROCESSING.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing || next == OrderStatusCancelled
	case OrderStatusProcessing:
		return next == OrderStatusShipped || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	default:
		// CONFIRMED не выставляется ни одним переходом, выхода из него нет;
		// DELIVERED и CANCELLED терминальны.
		return false
	}
}

// ParseOrderStatus принимает значение в произвольном регистре и возвращает
// каноническую форму. Нераспознанные значения отклоняются — вместо
// небезопасного сохранения сырой строки.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", Errorf(KindInvalidInput, "unknown order status %q", raw)
	}
	return status, nil
}

// ParseOrderType разбирает тип позиции, по умолчанию RETAIL.
func ParseOrderType(raw string) (OrderType, error) {
	if strings.TrimSpace(raw) == "" {
		return OrderTypeRetail, nil
	}
	t := OrderType(strings.ToUpper(strings.TrimSpace(raw)))
	if t != OrderTypeRetail && t != OrderTypeWholesale {
		return "", Errorf(KindInvalidInput, "unknown order type %q", raw)
	}
	return t, nil
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID ссылается на товар, чей сток возвращается при отмене.
	ProductID string
	// Qty — количество единиц товара, строго положительное.
	Qty int32
	// PriceMinor — цена за единицу на момент оформления, в минимальных
	// денежных единицах. Не пересчитывается при изменении цены товара.
	PriceMinor int64
	// OrderType — розничная или оптовая позиция.
	OrderType OrderType
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// ShippingAddress — снимок адреса получателя, сделанный при оформлении.
// После создания заказа не изменяется.
type ShippingAddress struct {
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
}

// Order агрегирует состояние заказа, платёж, доставку и позиции.
type Order struct {
	ID          string
	OrderNumber string
	CustomerID  string
	Status      OrderStatus

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus

	Currency      string
	SubtotalMinor int64
	ShippingMinor int64
	TaxMinor      int64
	TotalMinor    int64

	TrackingNumber string
	CourierService string

	Shipping ShippingAddress
	Items    []OrderItem

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.IsValid() {
		errs = append(errs, ErrStatusInvalid)
	}
	if !o.PaymentMethod.IsValid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if !o.PaymentStatus.IsValid() {
		errs = append(errs, ErrPaymentStatusInvalid)
	}
	if o.SubtotalMinor < 0 || o.ShippingMinor < 0 || o.TaxMinor < 0 || o.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
	}

	// Сверяем итог: total = subtotal + shipping + tax, точное целочисленное равенство.
	if o.TotalMinor != o.SubtotalMinor+o.ShippingMinor+o.TaxMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// TrackingAssigned сообщает, назначен ли заказу трек-номер.
func (o *Order) TrackingAssigned() bool {
	return o.TrackingNumber != ""
}
