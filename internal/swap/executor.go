// internal/swap/executor.go
package swap

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-swapquote/internal/storage"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/logger"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/metrics"
)

// исходы для swap_executions_total
const (
	outcomeConfirmed  = "confirmed"
	outcomeExpired    = "expired"
	outcomeIntegrity  = "integrity"
	outcomeReplay     = "replay"
	outcomeConnection = "connection"
	outcomeSubmit     = "submit_failed"
	outcomeTimeout    = "timeout"
	outcomeFailed     = "failed"
)

// Executor отправляет подготовленную транзакцию ровно один раз и ждёт
// подтверждения. Повторной отправки нет: это решение вызывающего.
type Executor struct {
	connector Connector
	journal   storage.QuoteJournal
	integrity *Integrity
	validator *transaction.Validator
	opts      Options
	metrics   *metrics.Collector
	logger    *zap.Logger

	now func() time.Time
}

// NewExecutor создаёт Executor из deps.
func NewExecutor(deps Deps, opts Options) *Executor {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		connector: deps.Connector,
		journal:   deps.Journal,
		integrity: deps.Integrity,
		validator: transaction.NewValidator(log),
		opts:      opts,
		metrics:   deps.Metrics,
		logger:    log.Named("executor"),
		now:       time.Now,
	}
}

// Execute проверяет подпись ответа и срок котировки, валидирует транзакцию,
// забирает котировку в журнале, отправляет и ждёт подтверждения.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) types.SwapResponse {
	prepared := req.Response
	meta := prepared.Metadata
	log := logger.WithQuote(logger.WithOperation(e.logger, "execute"), meta.QuoteID)
	m := newMachine(log)

	m.enter(types.StageValidating)
	if err := e.integrity.Verify(prepared); err != nil {
		return e.fail(m, meta, err, outcomeIntegrity)
	}
	now := e.now()
	if meta.Expired(now) {
		return e.fail(m, meta, &types.ExpiredQuoteError{
			QuoteID:   meta.QuoteID,
			ExpiresAt: unixMilli(meta.ExpiresAt),
			Now:       now,
		}, outcomeExpired)
	}
	if !prepared.Succeeded() || prepared.Data.SwapInstructions == nil || meta.QuoteID == "" {
		return e.fail(m, meta, &types.IntegrityError{Reason: "response carries no prepared swap"}, outcomeIntegrity)
	}

	instructions := prepared.Data.SwapInstructions
	tx, err := e.decode(instructions, req.SignedTransaction)
	if err != nil {
		return e.fail(m, meta, err, outcomeIntegrity)
	}

	m.enter(types.StageConnecting)
	conn, err := e.connector.Connect(ctx, req.Endpoint, e.opts.MaxRetries)
	if err != nil {
		return e.fail(m, meta, err, outcomeConnection)
	}

	m.enter(types.StageSubmitting)
	if e.journal != nil {
		if err := e.journal.ClaimSubmission(ctx, claimRecord(prepared)); err != nil {
			outcome := outcomeReplay
			if !errors.Is(err, types.ErrReplay) {
				outcome = outcomeFailed
			}
			return e.fail(m, meta, err, outcome)
		}
	}

	// после отправки отмена вызывающего уже ничего не прерывает
	detached := context.WithoutCancel(ctx)

	sig, err := conn.Submit(detached, tx)
	if err != nil {
		e.markResult(detached, meta.QuoteID, storage.QuoteFailed, err)
		return e.fail(m, meta, err, outcomeSubmit)
	}
	if e.journal != nil {
		if err := e.journal.MarkSubmitted(detached, meta.QuoteID, sig.String()); err != nil {
			log.Warn("Не удалось записать подпись в журнал", zap.Error(err))
		}
	}
	log.Info("Транзакция отправлена", zap.String("signature", sig.String()))

	m.enter(types.StageConfirming)
	submittedAt := e.now()
	if err := conn.Confirm(detached, sig, instructions.BlockReference); err != nil {
		e.markResult(detached, meta.QuoteID, storage.QuoteFailed, err)
		outcome := outcomeFailed
		if errors.Is(err, types.ErrConfirmationTimeout) {
			outcome = outcomeTimeout
		}
		return e.fail(m, meta, err, outcome)
	}
	e.metrics.ObserveConfirmation(e.now().Sub(submittedAt))
	e.markResult(detached, meta.QuoteID, storage.QuoteConfirmed, nil)

	m.enter(types.StageConfirmed)
	e.metrics.RecordExecution(outcomeConfirmed)
	log.Info("Транзакция подтверждена", zap.String("signature", sig.String()))

	resp := types.SuccessResponse(&types.ResponseData{
		Quote:            prepared.Data.Quote,
		SwapInstructions: instructions,
		Signature:        sig.String(),
	}, meta)
	if err := e.integrity.Sign(&resp); err != nil {
		log.Warn("failed to sign execution response", zap.Error(err))
	}
	return resp
}

// decode разбирает подготовленный payload и подписанный вариант. Подписанная
// транзакция обязана нести то же сообщение.
func (e *Executor) decode(instructions *types.SwapInstructions, signed string) (*solana.Transaction, error) {
	preparedTx, err := decodeTransaction(instructions.Transaction)
	if err != nil {
		return nil, &types.IntegrityError{Reason: "prepared transaction: " + err.Error()}
	}

	tx := preparedTx
	if signed != "" {
		tx, err = decodeTransaction(signed)
		if err != nil {
			return nil, &types.IntegrityError{Reason: "signed transaction: " + err.Error()}
		}
		if err := e.validator.MatchesPrepared(preparedTx, tx); err != nil {
			return nil, &types.IntegrityError{Reason: err.Error()}
		}
	}

	if len(instructions.Signers) == 0 {
		return nil, &types.IntegrityError{Reason: "no required signers"}
	}
	user, err := solana.PublicKeyFromBase58(instructions.Signers[0])
	if err != nil {
		return nil, &types.IntegrityError{Reason: "invalid signer address"}
	}
	if err := e.validator.ValidateSigned(tx, user, instructions.BlockReference); err != nil {
		return nil, &types.IntegrityError{Reason: err.Error()}
	}
	return tx, nil
}

func (e *Executor) markResult(ctx context.Context, quoteID string, status storage.QuoteStatus, cause error) {
	if e.journal == nil {
		return
	}
	msg := ""
	if cause != nil {
		msg = types.SanitizeError(cause)
	}
	if err := e.journal.MarkResult(ctx, quoteID, status, msg); err != nil {
		e.logger.Warn("Не удалось обновить журнал", zap.String("quote_id", quoteID), zap.Error(err))
	}
}

func (e *Executor) fail(m *machine, meta types.Metadata, err error, outcome string) types.SwapResponse {
	stage := m.stage
	m.enter(types.StageFailed)
	e.metrics.RecordExecution(outcome)
	m.logger.Warn("Исполнение обмена не удалось",
		zap.String("stage", string(stage)),
		zap.String("error", types.SanitizeError(err)))

	failed := meta
	failed.Stage = stage
	resp := types.ErrorResponse(err, failed)
	if signErr := e.integrity.Sign(&resp); signErr != nil {
		e.logger.Warn("failed to sign error response", zap.Error(signErr))
	}
	return resp
}

func claimRecord(resp types.SwapResponse) *storage.QuoteRecord {
	meta := resp.Metadata
	rec := &storage.QuoteRecord{
		QuoteID:    meta.QuoteID,
		PreparedAt: meta.PreparedAt,
		ExpiresAt:  meta.ExpiresAt,
	}
	if q := resp.Data.Quote; q != nil {
		rec.InputMint = q.InputToken.Mint
		rec.OutputMint = q.OutputToken.Mint
		rec.InputAmount = q.InputAmount.BaseUnits()
		rec.EstimatedAmount = q.EstimatedAmount.BaseUnits()
		rec.MinimumAmount = q.MinimumAmount.BaseUnits()
		if len(q.QuoteAddresses) > 0 {
			rec.PoolAddress = q.QuoteAddresses[0]
		}
	}
	if signers := resp.Data.SwapInstructions.Signers; len(signers) > 0 {
		rec.UserAddress = signers[0]
	}
	return rec
}
