package domain

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
	// SaveWithRestock атомарно сохраняет заказ (с проверкой версии) и
	// возвращает сток по всем позициям. Либо фиксируется всё — смена
	// статуса и каждый инкремент, — либо ничего.
	SaveWithRestock(order Order, restock []StockAdjustment) error
}

// ProductRepository описывает требования к хранилищу товаров.
type ProductRepository interface {
	Create(product Product) error
	// Get возвращает товар или ErrProductNotFound.
	Get(id string) (Product, error)
	// AdjustStock изменяет остаток товара на delta (может быть отрицательным).
	AdjustStock(id string, delta int32) error
}

// ReturnRepository хранит заявки на возврат.
type ReturnRepository interface {
	Create(request ReturnRequest) error
	ListByOrder(orderID string) ([]ReturnRequest, error)
}
