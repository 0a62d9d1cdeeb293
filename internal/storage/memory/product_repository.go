package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ProductRepository — in-memory реализация domain.ProductRepository.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает пустой репозиторий товаров.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[string]domain.Product)}
}

// Create сохраняет новый товар.
func (r *ProductRepository) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.Errorf(domain.KindInvalidInput, "product %s already exists", product.ID)
	}
	r.items[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *ProductRepository) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// AdjustStock изменяет остаток на delta. Отрицательный итог отклоняется.
func (r *ProductRepository) AdjustStock(id string, delta int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Stock+delta < 0 {
		return domain.Errorf(domain.KindInvalidInput, "stock for product %s would go negative", id)
	}
	product.Stock += delta
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return nil
}

// ensureExist проверяет наличие всех товаров перед атомарным возвратом стока.
func (r *ProductRepository) ensureExist(restock []domain.StockAdjustment) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, adj := range restock {
		if _, ok := r.items[adj.ProductID]; !ok {
			return domain.ErrProductNotFound
		}
	}
	return nil
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
