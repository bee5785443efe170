// internal/blockchain/solbc/connection.go
package solbc

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/retry"
)

// ConnectionManager выдаёт проверенные соединения с узлом.
// Состояния между вызовами Connect нет: каждый вызов получает свой handle.
type ConnectionManager struct {
	strategy   retry.Strategy
	monitorCfg transaction.Config
	metrics    *metrics.Collector
	logger     *zap.Logger

	dial func(endpoint string) *Client
}

// NewConnectionManager создаёт менеджер соединений.
func NewConnectionManager(strategy retry.Strategy, monitorCfg transaction.Config, collector *metrics.Collector, logger *zap.Logger) *ConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &ConnectionManager{
		strategy:   strategy,
		monitorCfg: monitorCfg,
		metrics:    collector,
		logger:     logger.Named("connection"),
	}
	m.dial = func(endpoint string) *Client {
		return NewClient(endpoint, logger, m.monitorCfg)
	}
	return m
}

// Connect открывает handle к endpoint и подтверждает его живость.
// После maxRetries неудачных попыток возвращает *types.ConnectionError.
func (m *ConnectionManager) Connect(ctx context.Context, endpoint string, maxRetries int) (blockchain.Connection, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, &types.InvalidParameterError{Field: "endpoint", Reason: "must not be empty"}
	}

	strategy := m.strategy.WithMaxTries(maxRetries)
	attempts := 0

	client, err := retry.Do(ctx, strategy, "connect", func(ctx context.Context, attempt int) (*Client, error) {
		attempts = attempt
		client := m.dial(endpoint)

		if err := client.Probe(ctx); err != nil {
			m.metrics.RecordConnectAttempt(false)
			m.logger.Debug("Проверка узла не прошла",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.String("error", types.SanitizeError(err)))
			if IsCriticalError(err) {
				return nil, retry.Permanent(err)
			}
			return nil, err
		}

		m.metrics.RecordConnectAttempt(true)
		return client, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(ctxErr, err)
		}
		m.logger.Warn("Не удалось подключиться к узлу",
			zap.String("endpoint", endpoint),
			zap.Int("attempts", attempts),
			zap.String("error", types.SanitizeError(err)))
		return nil, &types.ConnectionError{Endpoint: endpoint, Attempts: attempts, Err: err}
	}

	m.logger.Debug("Соединение установлено",
		zap.String("endpoint", endpoint),
		zap.Int("attempts", attempts))
	return client, nil
}
