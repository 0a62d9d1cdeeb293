package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OrderRepository — простая in-memory реализация domain.OrderRepository.
type OrderRepository struct {
	mu       sync.RWMutex
	items    map[string]domain.Order
	products *ProductRepository
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
// products нужен для атомарного возврата стока при отмене; допускается nil,
// тогда SaveWithRestock откажет.
func NewOrderRepository(products *ProductRepository) *OrderRepository {
	return &OrderRepository{
		items:    make(map[string]domain.Order),
		products: products,
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *OrderRepository) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	// Сохраняем копию позиций, чтобы избежать мутаций извне.
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	r.items[order.ID] = order
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *OrderRepository) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	return order, nil
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *OrderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.CustomerID != customerID {
			continue
		}
		order.Items = append([]domain.OrderItem(nil), order.Items...)
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *OrderRepository) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(order)
}

// SaveWithRestock сохраняет заказ и возвращает сток одним логическим шагом.
// Сначала проверяются версия и наличие всех товаров, и только потом
// применяются изменения — частичного возврата не бывает.
func (r *OrderRepository) SaveWithRestock(order domain.Order, restock []domain.StockAdjustment) error {
	if r.products == nil {
		return domain.E(domain.KindInternal, "product repository is not wired")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	if err := r.products.ensureExist(restock); err != nil {
		return err
	}

	if err := r.saveLocked(order); err != nil {
		return err
	}
	for _, adj := range restock {
		// Наличие проверено выше, сбой здесь невозможен.
		_ = r.products.AdjustStock(adj.ProductID, adj.Qty)
	}
	return nil
}

func (r *OrderRepository) saveLocked(order domain.Order) error {
	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	r.items[order.ID] = order
	return nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
