package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка статуса вне закрытого словаря.
	ErrStatusInvalid = errors.New("order status is not a known value")
	// Ошибка способа оплаты вне словаря COD|ONLINE.
	ErrPaymentMethodInvalid = errors.New("payment method is not a known value")
	// Ошибка статуса оплаты вне словаря PENDING|PAID|FAILED.
	ErrPaymentStatusInvalid = errors.New("payment status is not a known value")
	// Ошибка отрицательной денежной суммы.
	ErrAmountNegative = errors.New("monetary amounts must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отсутствующей ссылки на товар в позиции.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Ошибка несоответствия итога сумме subtotal + shipping + tax.
	ErrAmountMismatch = errors.New("order total does not match subtotal + shipping + tax")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден в репозитории.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
)

// Kind — машинно-проверяемая категория ошибки, стабильная для вызывающих.
type Kind string

const (
	// KindNotFound — заказ или товар отсутствует.
	KindNotFound Kind = "NOT_FOUND"
	// KindForbidden — актор не авторизован на операцию.
	KindForbidden Kind = "FORBIDDEN"
	// KindInvalidInput — не хватает обязательных полей перехода либо
	// значение вне закрытого словаря.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindInvalidTransition — предусловие на текущий статус не выполнено.
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	// KindUpstreamUnavailable — хранилище или курьерский провайдер временно недоступны.
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	// KindInternal — всё неожиданное.
	KindInternal Kind = "INTERNAL"
)

// Error несёт категорию и человекочитаемое сообщение без внутренних деталей.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap отдаёт причину для errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// E создаёт доменную ошибку заданной категории.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf создаёт доменную ошибку с форматированием сообщения.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap оборачивает причину, сохраняя категорию для вызывающих.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает категорию ошибки; для неразмеченных ошибок — KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrProductNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// IsKind проверяет, принадлежит ли ошибка категории.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
