// internal/utils/retry/retry.go
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMultiplier      = 2.0
	// MaxInterval ограничивается кратным начального интервала
	DefaultMaxIntervalFactor = 10
)

// Strategy единая политика повторов: экспоненциальная задержка с потолком
// и ограничением числа попыток.
type Strategy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Jitter доля случайного разброса задержки; 0 делает задержки детерминированными
	Jitter float64

	logger *zap.Logger
	// onRetry вызывается перед каждой задержкой
	onRetry func(attempt int, next time.Duration)
}

// New создаёт стратегию с maxTries попытками и начальной задержкой delay.
func New(maxTries int, delay time.Duration, logger *zap.Logger) Strategy {
	if maxTries <= 0 {
		maxTries = 1
	}
	if delay <= 0 {
		delay = DefaultInitialInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return Strategy{
		MaxTries:        uint(maxTries),
		InitialInterval: delay,
		MaxInterval:     delay * DefaultMaxIntervalFactor,
		Multiplier:      DefaultMultiplier,
		logger:          logger.Named("retry"),
	}
}

// WithMaxTries копия стратегии с другим числом попыток.
func (s Strategy) WithMaxTries(n int) Strategy {
	if n > 0 {
		s.MaxTries = uint(n)
	}
	return s
}

func (s Strategy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.InitialInterval
	b.MaxInterval = s.MaxInterval
	b.Multiplier = s.Multiplier
	b.RandomizationFactor = s.Jitter
	b.Reset()
	return b
}

// Permanent помечает ошибку как не подлежащую повтору.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do выполняет op до успеха, исчерпания попыток, permanent-ошибки или отмены ctx.
// Попытки строго последовательны.
func Do[T any](ctx context.Context, s Strategy, name string, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		return op(ctx, attempt)
	}

	notify := func(err error, next time.Duration) {
		logger.Debug("Повтор попытки после ошибки",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err))
		if s.onRetry != nil {
			s.onRetry(attempt, next)
		}
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.backOff()),
		backoff.WithMaxTries(s.MaxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify))
}
