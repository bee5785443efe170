// internal/swap/swap.go
// Package swap собирает неподписанные транзакции обмена и исполняет их.
package swap

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-swapquote/internal/quote"
	"github.com/rovshanmuradov/solana-swapquote/internal/storage"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/metrics"
)

// TransactionVersion тег формата сообщения
const TransactionVersion = "legacy"

// Connector открывает проверенное соединение с узлом.
type Connector interface {
	Connect(ctx context.Context, endpoint string, maxRetries int) (blockchain.Connection, error)
}

// Quoter считает котировку по открытому соединению.
type Quoter interface {
	Quote(ctx context.Context, conn blockchain.Connection, req quote.QuoteRequest) (*types.Quote, error)
}

// InstructionBuilder строит инструкцию обмена для выбранного пула.
type InstructionBuilder interface {
	BuildSwapInstruction(pool types.Pool, user raydium.UserAccounts, amountIn, minAmountOut uint64) (solana.Instruction, error)
}

// Options параметры подготовки и исполнения
type Options struct {
	MaxRetries   int
	Priority     types.PriorityLevel
	ComputeUnits uint32
	PriorityFee  uint64
}

// Deps зависимости Preparer и Executor. Journal, Integrity и Metrics
// необязательны.
type Deps struct {
	Connector Connector
	Quoter    Quoter
	Builder   InstructionBuilder
	Priority  *types.PriorityManager
	Journal   storage.QuoteJournal
	Integrity *Integrity
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// PrepareRequest запрос на подготовку обмена.
type PrepareRequest struct {
	quote.QuoteRequest
	Endpoint string `json:"endpoint"`
	User     string `json:"user"`
}

// QuoteOnlyRequest запрос котировки без сборки транзакции.
type QuoteOnlyRequest struct {
	quote.QuoteRequest
	Endpoint string `json:"endpoint"`
}

// ExecuteRequest подготовленный ответ и, при наличии, подписанная транзакция.
type ExecuteRequest struct {
	Response types.SwapResponse `json:"response"`
	// SignedTransaction base64; пустая строка означает подготовленный payload
	SignedTransaction string `json:"signedTransaction,omitempty"`
	Endpoint          string `json:"endpoint"`
}

// newQuoteID UUIDv7: миллисекундные часы плюс случайные биты
func newQuoteID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// machine текущий этап конвейера; каждый переход пишется в Debug
type machine struct {
	stage  types.Stage
	logger *zap.Logger
}

func newMachine(logger *zap.Logger) *machine {
	return &machine{stage: types.StageStart, logger: logger}
}

func (m *machine) enter(next types.Stage) {
	m.logger.Debug("stage transition",
		zap.String("from", string(m.stage)),
		zap.String("to", string(next)))
	m.stage = next
}

func unixMilli(ms int64) time.Time {
	return time.UnixMilli(ms)
}
