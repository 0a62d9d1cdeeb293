package tracking

import (
	"context"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultCourier используется, когда заказ не указывает курьерскую службу.
const DefaultCourier = "delhivery"

// Provider — адаптер одной курьерской службы.
type Provider interface {
	// GetTracking возвращает нормализованную историю по трек-номеру.
	GetTracking(ctx context.Context, trackingNumber string) (*domain.TrackingRecord, error)
	// SupportsCourier сообщает, обслуживает ли адаптер данную службу.
	SupportsCourier(courierName string) bool
}
