// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// StatusReader методы узла, нужные для отслеживания транзакции.
type StatusReader interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

type Monitor struct {
	client StatusReader
	logger *zap.Logger
	config Config
}

func NewMonitor(client StatusReader, logger *zap.Logger, config Config) *Monitor {
	if config.MinConfirmations == 0 {
		config.MinConfirmations = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.MaxFailedPolls <= 0 {
		config.MaxFailedPolls = DefaultMaxFailedPolls
	}
	if config.MaxWait <= 0 {
		config.MaxWait = DefaultMaxWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
		config: config,
	}
}

// GetTransactionStatus текущий статус подписи; отсутствие статуса даёт "pending".
func (m *Monitor) GetTransactionStatus(ctx context.Context, signature solana.Signature) (*Status, error) {
	response, err := m.client.GetSignatureStatuses(ctx, false, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return &Status{
			Signature: signature.String(),
			Status:    "pending",
			Timestamp: time.Now(),
		}, nil
	}

	status := response.Value[0]
	txStatus := &Status{
		Signature: signature.String(),
		Timestamp: time.Now(),
		Slot:      status.Slot,
	}

	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = "finalized"
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = "confirmed"
	default:
		txStatus.Status = "pending"
	}

	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.Status = "failed"
	}

	return txStatus, nil
}

func (m *Monitor) confirmed(status *Status) bool {
	switch status.Status {
	case "confirmed", "finalized":
		return true
	}
	return status.Confirmations >= uint64(m.config.MinConfirmations)
}

// AwaitConfirmation опрашивает статус подписи, пока blockhash из ref действителен.
// Транзакция не переотправляется: по истечении ref возвращается
// *types.ConfirmationTimeoutError, ошибка исполнения даёт *types.TransactionFailedError.
// Тот же таймаут возвращается после MaxFailedPolls подряд опросов без высоты блока
// и по истечении MaxWait, так что ожидание конечно и без отмены ctx.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature, ref types.BlockReference) (*Status, error) {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	deadline := time.Now().Add(m.config.MaxWait)
	failedPolls := 0
	var lastHeight uint64
	timeout := func() error {
		return &types.ConfirmationTimeoutError{
			Signature:            signature.String(),
			LastValidBlockHeight: ref.LastValidBlockHeight,
			BlockHeight:          lastHeight,
		}
	}

	for {
		status, err := m.GetTransactionStatus(ctx, signature)
		switch {
		case err != nil:
			m.logger.Warn("Confirmation check failed", zap.String("error", types.SanitizeError(err)))
		case status.Status == "failed":
			return status, &types.TransactionFailedError{
				Signature: signature.String(),
				Reason:    status.Error,
			}
		case m.confirmed(status):
			return status, nil
		}

		height, err := m.client.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			failedPolls++
			m.logger.Warn("Block height check failed",
				zap.Int("failed_polls", failedPolls),
				zap.String("error", types.SanitizeError(err)))
			if failedPolls >= m.config.MaxFailedPolls {
				return nil, timeout()
			}
		} else {
			failedPolls = 0
			lastHeight = height
			if height > ref.LastValidBlockHeight {
				// последний шанс: транзакция могла попасть в блок до истечения ref
				if final, err := m.GetTransactionStatus(ctx, signature); err == nil && m.confirmed(final) && final.Status != "failed" {
					return final, nil
				}
				return nil, timeout()
			}
		}

		if time.Now().After(deadline) {
			m.logger.Warn("Confirmation wait exceeded", zap.Duration("max_wait", m.config.MaxWait))
			return nil, timeout()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
