package retry

import (
	"context"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OrderRepository — декоратор над хранилищем заказов: каждая операция
// проходит через Executor. Конфликт версий не повторяется здесь — это
// забота движка переходов, а не слоя соединения.
type OrderRepository struct {
	inner domain.OrderRepository
	exec  *Executor
}

// WrapOrders оборачивает хранилище заказов в retry-слой.
func WrapOrders(inner domain.OrderRepository, exec *Executor) *OrderRepository {
	return &OrderRepository{inner: inner, exec: exec}
}

func (r *OrderRepository) Create(order domain.Order) error {
	return r.exec.Do(context.Background(), "order.create", func(context.Context) error {
		return r.inner.Create(order)
	})
}

func (r *OrderRepository) Get(id string) (domain.Order, error) {
	return DoValue(context.Background(), r.exec, "order.get", func(context.Context) (domain.Order, error) {
		return r.inner.Get(id)
	})
}

func (r *OrderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	return DoValue(context.Background(), r.exec, "order.list_by_customer", func(context.Context) ([]domain.Order, error) {
		return r.inner.ListByCustomer(customerID, limit)
	})
}

func (r *OrderRepository) Save(order domain.Order) error {
	return r.exec.Do(context.Background(), "order.save", func(context.Context) error {
		return r.inner.Save(order)
	})
}

func (r *OrderRepository) SaveWithRestock(order domain.Order, restock []domain.StockAdjustment) error {
	return r.exec.Do(context.Background(), "order.save_with_restock", func(context.Context) error {
		return r.inner.SaveWithRestock(order, restock)
	})
}

var _ domain.OrderRepository = (*OrderRepository)(nil)

// ProductRepository — retry-слой над хранилищем товаров.
type ProductRepository struct {
	inner domain.ProductRepository
	exec  *Executor
}

// WrapProducts оборачивает хранилище товаров в retry-слой.
func WrapProducts(inner domain.ProductRepository, exec *Executor) *ProductRepository {
	return &ProductRepository{inner: inner, exec: exec}
}

func (r *ProductRepository) Create(product domain.Product) error {
	return r.exec.Do(context.Background(), "product.create", func(context.Context) error {
		return r.inner.Create(product)
	})
}

func (r *ProductRepository) Get(id string) (domain.Product, error) {
	return DoValue(context.Background(), r.exec, "product.get", func(context.Context) (domain.Product, error) {
		return r.inner.Get(id)
	})
}

func (r *ProductRepository) AdjustStock(id string, delta int32) error {
	return r.exec.Do(context.Background(), "product.adjust_stock", func(context.Context) error {
		return r.inner.AdjustStock(id, delta)
	})
}

var _ domain.ProductRepository = (*ProductRepository)(nil)

// ReturnRepository — retry-слой над заявками на возврат.
type ReturnRepository struct {
	inner domain.ReturnRepository
	exec  *Executor
}

// WrapReturns оборачивает хранилище возвратов в retry-слой.
func WrapReturns(inner domain.ReturnRepository, exec *Executor) *ReturnRepository {
	return &ReturnRepository{inner: inner, exec: exec}
}

func (r *ReturnRepository) Create(request domain.ReturnRequest) error {
	return r.exec.Do(context.Background(), "return.create", func(context.Context) error {
		return r.inner.Create(request)
	})
}

func (r *ReturnRepository) ListByOrder(orderID string) ([]domain.ReturnRequest, error) {
	return DoValue(context.Background(), r.exec, "return.list_by_order", func(context.Context) ([]domain.ReturnRequest, error) {
		return r.inner.ListByOrder(orderID)
	})
}

var _ domain.ReturnRepository = (*ReturnRepository)(nil)
