package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ReturnRepository — in-memory хранилище заявок на возврат.
type ReturnRepository struct {
	mu    sync.RWMutex
	items map[string]domain.ReturnRequest
}

// NewReturnRepository возвращает пустое хранилище заявок.
func NewReturnRepository() *ReturnRepository {
	return &ReturnRepository{items: make(map[string]domain.ReturnRequest)}
}

// Create сохраняет новую заявку.
func (r *ReturnRepository) Create(request domain.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[request.ID]; exists {
		return domain.Errorf(domain.KindInvalidInput, "return request %s already exists", request.ID)
	}
	r.items[request.ID] = request
	return nil
}

// ListByOrder возвращает заявки по заказу.
func (r *ReturnRepository) ListByOrder(orderID string) ([]domain.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.ReturnRequest, 0)
	for _, request := range r.items {
		if request.OrderID == orderID {
			result = append(result, request)
		}
	}
	return result, nil
}

var _ domain.ReturnRepository = (*ReturnRepository)(nil)
