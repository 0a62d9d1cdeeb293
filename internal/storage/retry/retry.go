// Package retry оборачивает единичные операции хранилища в ограниченный
// повтор с нарастающей задержкой. Повторяются только транзиентные сбои
// соединения; бизнес-ошибки уходят вызывающему с первого раза.
package retry

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config конфигурация для retry логики.
type Config struct {
	// MaxAttempts — максимум попыток, включая первую.
	MaxAttempts int
	// BaseDelay — базовая задержка; фактическая растёт как BaseDelay × номер попытки.
	BaseDelay time.Duration
	// MaxDelay ограничивает задержку сверху.
	MaxDelay time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию: 3 попытки с базой 1s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Reconnector восстанавливает подключение хранилища между попытками.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// Executor выполняет операции хранилища с повтором транзиентных сбоев.
type Executor struct {
	config Config
	store  Reconnector
	logger *log.Entry
}

// NewExecutor создаёт executor. store может быть nil, тогда переподключение
// между попытками пропускается.
func NewExecutor(config Config, store Reconnector, logger *log.Entry) *Executor {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if logger == nil {
		logger = log.New().WithField("component", "storage-retry")
	}
	return &Executor{
		config: config,
		store:  store,
		logger: logger,
	}
}

// Do выполняет операцию с повтором. Неповторяемая ошибка уходит сразу;
// после исчерпания попыток последняя ошибка возвращается без обёртки.
func (e *Executor) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				e.logger.WithFields(log.Fields{
					"operation": operation,
					"attempt":   attempt,
				}).Info("storage operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt == e.config.MaxAttempts {
			break
		}

		e.logger.WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"error":     err,
		}).Warn("transient storage failure, retrying")

		// Пробуем восстановить подключение до следующей попытки.
		if e.store != nil {
			if rcErr := e.store.Reconnect(ctx); rcErr != nil {
				e.logger.WithError(rcErr).WithField("operation", operation).Warn("reconnect before retry failed")
			}
		}

		delay := e.config.BaseDelay * time.Duration(attempt)
		if e.config.MaxDelay > 0 && delay > e.config.MaxDelay {
			delay = e.config.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.logger.WithFields(log.Fields{
		"operation":    operation,
		"max_attempts": e.config.MaxAttempts,
		"error":        lastErr,
	}).Error("storage operation failed after all retry attempts")

	return lastErr
}

// DoValue — вариант Do для операций, возвращающих значение.
func DoValue[T any](ctx context.Context, e *Executor, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, operation, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}

// retryableFragments — сигнатуры транзиентных сбоёв в тексте ошибки драйвера.
var retryableFragments = []string{
	"connection",
	"closed",
	"timeout",
	"timed out",
	"broken pipe",
	"reset by peer",
}

// IsRetryable сообщает, указывает ли ошибка на транзиентный сбой соединения.
// Ограничения целостности, not-found и прочие бизнес-ошибки не повторяются.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
