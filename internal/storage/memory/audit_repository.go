package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// AuditRepository — in-memory журнал аудита.
type AuditRepository struct {
	mu      sync.RWMutex
	records []domain.AuditRecord
}

// NewAuditRepository возвращает пустой журнал.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Append добавляет запись в журнал.
func (r *AuditRepository) Append(record domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// ListByOrder возвращает записи по заказу в порядке добавления.
func (r *AuditRepository) ListByOrder(orderID string) ([]domain.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.AuditRecord, 0)
	for _, record := range r.records {
		if record.OrderID == orderID {
			result = append(result, record)
		}
	}
	return result, nil
}

var _ domain.AuditRepository = (*AuditRepository)(nil)
