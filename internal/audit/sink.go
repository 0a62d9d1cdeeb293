// Package audit реализует fire-and-forget приёмник записей о действиях
// пользователей: структурный лог, журнал в хранилище и опциональное
// событие в Kafka. Сбой приёмника никогда не прерывает операцию.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// EventPublisher — опциональный издатель событий жизненного цикла.
type EventPublisher interface {
	Publish(orderID string, event *kafka.OrderEvent) error
}

// Sink пишет запись во все подключённые приёмники.
type Sink struct {
	repo      domain.AuditRepository
	publisher EventPublisher
	logger    *log.Entry
	metrics   *metrics.LifecycleMetrics
	now       func() time.Time
}

// Option настраивает Sink.
type Option func(*Sink)

// WithPublisher подключает издателя Kafka-событий.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *Sink) {
		s.publisher = publisher
	}
}

// WithMetrics подключает счётчик записей.
func WithMetrics(m *metrics.LifecycleMetrics) Option {
	return func(s *Sink) {
		s.metrics = m
	}
}

// NewSink создаёт приёмник. repo может быть nil: тогда запись только логируется.
func NewSink(repo domain.AuditRepository, logger *log.Logger, opts ...Option) *Sink {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Sink{
		repo:   repo,
		logger: logger.WithField("component", "audit"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record фиксирует действие. Ошибки журналирования и публикации
// проглатываются: операция, породившая запись, уже завершена.
func (s *Sink) Record(_ context.Context, actorID string, action domain.Operation, details map[string]any) {
	orderID, _ := details["order_id"].(string)
	status, _ := details["status"].(string)

	entry := s.logger.WithFields(log.Fields{
		"actor_id": actorID,
		"action":   string(action),
		"order_id": orderID,
	})
	for k, v := range details {
		if k == "order_id" {
			continue
		}
		entry = entry.WithField(k, v)
	}
	entry.Info("audit record")

	if s.repo != nil {
		record := domain.AuditRecord{
			ID:        uuid.New().String(),
			ActorID:   actorID,
			Action:    action,
			OrderID:   orderID,
			Details:   details,
			CreatedAt: s.now(),
		}
		if err := s.repo.Append(record); err != nil {
			s.logger.WithError(err).Warn("audit append failed, record dropped from store")
		}
	}

	if s.publisher != nil {
		event := kafka.NewOrderEvent(string(action), orderID, actorID, status, details)
		if err := s.publisher.Publish(orderID, event); err != nil {
			s.logger.WithError(err).Warn("audit event publish failed")
		}
	}

	if s.metrics != nil {
		s.metrics.RecordAuditRecord()
	}
}

var _ domain.AuditSink = (*Sink)(nil)
