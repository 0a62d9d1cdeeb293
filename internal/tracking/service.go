package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const defaultCacheTTL = 5 * time.Minute

// Service маршрутизирует запросы трекинга по провайдерам и кэширует
// нормализованные ответы. Реализует domain.CourierTracker.
type Service struct {
	providers []Provider
	cache     Cache
	cacheTTL  time.Duration
	logger    *logrus.Entry
	metrics   *metrics.LifecycleMetrics
}

// Option настраивает Service.
type Option func(*Service)

// WithCache подключает read-through кэш ответов провайдера.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMetrics подключает счётчики запросов.
func WithMetrics(m *metrics.LifecycleMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService создаёт сервис трекинга поверх набора провайдеров.
func NewService(providers []Provider, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		providers: providers,
		cacheTTL:  defaultCacheTTL,
		logger:    logger.WithField("component", "tracking.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Track возвращает нормализованную запись по трек-номеру. Пустой courier
// означает провайдера по умолчанию.
func (s *Service) Track(ctx context.Context, trackingNumber, courier string) (*domain.TrackingRecord, error) {
	if trackingNumber == "" {
		return nil, domain.E(domain.KindInvalidInput, "tracking number is required")
	}
	if courier == "" {
		courier = DefaultCourier
	}

	provider := s.providerFor(courier)
	if provider == nil {
		s.recordLookup("unsupported")
		return nil, domain.Errorf(domain.KindInvalidInput, "courier %s is not supported", courier)
	}

	if record := s.fromCache(ctx, courier, trackingNumber); record != nil {
		s.recordLookup("cache_hit")
		return record, nil
	}

	record, err := provider.GetTracking(ctx, trackingNumber)
	if err != nil {
		s.recordLookup("error")
		return nil, err
	}

	s.recordLookup("ok")
	s.toCache(ctx, courier, trackingNumber, record)
	return record, nil
}

// TrackMany выполняет пакетный запрос: на каждый вход ровно один результат
// либо одна ошибка. Сбой одного номера не прерывает батч.
func (s *Service) TrackMany(ctx context.Context, trackingNumbers []string, courier string) []domain.TrackingResult {
	results := make([]domain.TrackingResult, 0, len(trackingNumbers))
	for _, number := range trackingNumbers {
		record, err := s.Track(ctx, number, courier)
		if err != nil {
			results = append(results, domain.TrackingResult{
				TrackingNumber: number,
				Err:            err.Error(),
			})
			continue
		}
		results = append(results, domain.TrackingResult{
			TrackingNumber: number,
			Record:         record,
		})
	}
	return results
}

func (s *Service) providerFor(courier string) Provider {
	for _, provider := range s.providers {
		if provider.SupportsCourier(courier) {
			return provider
		}
	}
	return nil
}

func cacheKey(courier, trackingNumber string) string {
	return fmt.Sprintf("tracking:%s:%s", courier, trackingNumber)
}

// fromCache возвращает запись из кэша либо nil. Любой сбой кэша деградирует
// до прямого запроса к провайдеру.
func (s *Service) fromCache(ctx context.Context, courier, trackingNumber string) *domain.TrackingRecord {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, cacheKey(courier, trackingNumber))
	if err != nil {
		if err != ErrCacheMiss {
			s.logger.WithError(err).Warn("tracking cache read failed, falling through to provider")
		}
		return nil
	}

	var record domain.TrackingRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.WithError(err).Warn("corrupt tracking cache entry, falling through to provider")
		return nil
	}
	return &record
}

func (s *Service) toCache(ctx context.Context, courier, trackingNumber string, record *domain.TrackingRecord) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		s.logger.WithError(err).Warn("marshal tracking record for cache failed")
		return
	}
	if err := s.cache.Set(ctx, cacheKey(courier, trackingNumber), data, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("tracking cache write failed")
	}
}

func (s *Service) recordLookup(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTrackingLookup(outcome)
	}
}

var _ domain.CourierTracker = (*Service)(nil)
