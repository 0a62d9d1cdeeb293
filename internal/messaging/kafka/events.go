package kafka

import "time"

// Topics для Kafka
const (
	TopicOrderEvents = "storefront.order.events"
	TopicAuditEvents = "storefront.audit.events"
)

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	Action    string         `json:"action"`
	OrderID   string         `json:"order_id"`
	ActorID   string         `json:"actor_id"`
	Status    string         `json:"status,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewOrderEvent создает событие с текущей меткой времени.
func NewOrderEvent(action, orderID, actorID, status string, details map[string]any) *OrderEvent {
	return &OrderEvent{
		Action:    action,
		OrderID:   orderID,
		ActorID:   actorID,
		Status:    status,
		Timestamp: time.Now(),
		Details:   details,
	}
}
