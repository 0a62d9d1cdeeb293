package domain

import "time"

// Product — товар каталога. Ядро мутирует только поле Stock:
// при отмене заказа возвращается ровно зарезервированное количество.
type Product struct {
	ID         string
	SKU        string
	Name       string
	PriceMinor int64
	// Stock — остаток на складе, неотрицательный.
	Stock     int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockAdjustment описывает возврат резерва по одной позиции заказа.
type StockAdjustment struct {
	ProductID string
	Qty       int32
}

// RestockFor строит список возвратов стока по позициям заказа —
// ровно item.Qty на товар, не больше и не меньше.
func RestockFor(items []OrderItem) []StockAdjustment {
	adjustments := make([]StockAdjustment, 0, len(items))
	for _, item := range items {
		adjustments = append(adjustments, StockAdjustment{
			ProductID: item.ProductID,
			Qty:       item.Qty,
		})
	}
	return adjustments
}
