package domain

import "strings"

// PaymentMethod описывает способ оплаты заказа. Неизменяем после создания.
type PaymentMethod string

const (
	// PaymentMethodCOD — оплата при получении.
	PaymentMethodCOD PaymentMethod = "COD"
	// PaymentMethodOnline — предоплата через платёжный провайдер.
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

// PaymentStatus описывает состояние оплаты заказа.
// Движок сам платежи не проводит: он лишь выводит статус из переходов.
type PaymentStatus string

const (
	// PaymentStatusPending — оплата не подтверждена; для COD остаётся
	// таким до внешнего расчёта.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusPaid — для ONLINE выставляется при подтверждении заказа
	// (захват платежа уже произошёл выше по потоку).
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusFailed — провайдер отклонил платёж.
	PaymentStatusFailed PaymentStatus = "FAILED"
)

// IsValid сообщает, входит ли способ оплаты в словарь.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

// IsValid сообщает, входит ли статус оплаты в словарь.
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid || s == PaymentStatusFailed
}

// ParsePaymentMethod разбирает способ оплаты из произвольного регистра.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	if !m.IsValid() {
		return "", Errorf(KindInvalidInput, "unknown payment method %q", raw)
	}
	return m, nil
}

// ParsePaymentStatus разбирает статус оплаты из произвольного регистра.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	s := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", Errorf(KindInvalidInput, "unknown payment status %q", raw)
	}
	return s, nil
}
