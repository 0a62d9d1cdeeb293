package domain

import "time"

// ReturnWindow — окно приёма возвратов после доставки.
// UpdatedAt заказа служит прокси даты доставки.
const ReturnWindow = 7 * 24 * time.Hour

// ReturnStatus описывает состояние заявки на возврат.
type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "REQUESTED"
	ReturnStatusApproved  ReturnStatus = "APPROVED"
	ReturnStatusRejected  ReturnStatus = "REJECTED"
)

// ReturnRequest — заявка на возврат доставленного заказа.
type ReturnRequest struct {
	ID         string
	OrderID    string
	CustomerID string
	Reason     string
	Status     ReturnStatus
	CreatedAt  time.Time
}

// EligibleForReturn проверяет право на возврат: заказ доставлен и
// с момента последнего обновления прошло не более ReturnWindow.
func (o *Order) EligibleForReturn(now time.Time) bool {
	if o.Status != OrderStatusDelivered {
		return false
	}
	return !now.After(o.UpdatedAt.Add(ReturnWindow))
}
