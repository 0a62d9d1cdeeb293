package retry

import (
	"context"
	"time"
)

// Prober выполняет тривиальный round-trip к хранилищу.
type Prober interface {
	Probe(ctx context.Context) (time.Duration, error)
}

// Health — результат проверки связности хранилища.
type Health struct {
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// CheckHealth опрашивает хранилище и возвращает связность плюс латентность.
// Ошибка не возвращается отдельно: health-эндпойнту нужен отчёт, не сбой.
func CheckHealth(ctx context.Context, prober Prober) Health {
	latency, err := prober.Probe(ctx)
	if err != nil {
		return Health{OK: false, Latency: latency, Error: err.Error()}
	}
	return Health{OK: true, Latency: latency}
}
