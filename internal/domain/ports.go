package domain

import (
	"context"
	"time"
)

// AuditSink принимает записи о действиях пользователей и сбоях.
// Контракт fire-and-forget: сбой приёмника не должен прерывать операцию.
type AuditSink interface {
	Record(ctx context.Context, actorID string, action Operation, details map[string]any)
}

// AuditRecord — сохранённая запись аудита.
type AuditRecord struct {
	ID        string
	ActorID   string
	Action    Operation
	OrderID   string
	Details   map[string]any
	CreatedAt time.Time
}

// AuditRepository хранит журнал аудита по заказам.
type AuditRepository interface {
	Append(record AuditRecord) error
	ListByOrder(orderID string) ([]AuditRecord, error)
}

// CourierTracker — порт курьерского трекинга, только чтение.
// Сбой провайдера не должен блокировать чтение заказа.
type CourierTracker interface {
	// Track возвращает нормализованную запись по трек-номеру.
	// Пустой courier означает провайдера по умолчанию.
	Track(ctx context.Context, trackingNumber, courier string) (*TrackingRecord, error)
	// TrackMany выполняет пакетный запрос: на каждый вход ровно один
	// результат либо одна ошибка.
	TrackMany(ctx context.Context, trackingNumbers []string, courier string) []TrackingResult
}
