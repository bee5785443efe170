// internal/quote/engine.go
// Package quote считает лучшую котировку по набору пулов-кандидатов.
package quote

import (
	"context"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/catalog"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/metrics"
)

// DefaultWorkers число одновременных расчётов по пулам
const DefaultWorkers = 8

// QuoteRequest параметры запроса котировки.
type QuoteRequest struct {
	SourceMint  string `json:"sourceMint"`
	TargetMint  string `json:"targetMint"`
	Amount      uint64 `json:"amount"`
	SlippageBps uint16 `json:"slippageBps"`
}

// CandidateSource отдаёт пулы для пары и метаданные токенов.
type CandidateSource interface {
	ListCandidatePools(ctx context.Context, conn blockchain.Connection, sourceMint, targetMint solana.PublicKey) ([]types.Pool, error)
	DescribeToken(ctx context.Context, mint solana.PublicKey, decimals uint8) types.TokenInfo
}

// TradeComputer расчёт обмена по одному пулу.
type TradeComputer interface {
	ComputeTrade(pool types.Pool, amountIn *big.Int, inputMint solana.PublicKey, slippageBps uint16) (raydium.TradeResult, error)
}

// Engine выбирает пул с наибольшим ожидаемым выходом.
type Engine struct {
	candidates CandidateSource
	computer   TradeComputer
	workers    int
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewEngine создаёт движок котирования. workers <= 0 даёт DefaultWorkers.
func NewEngine(candidates CandidateSource, computer TradeComputer, workers int, collector *metrics.Collector, logger *zap.Logger) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		candidates: candidates,
		computer:   computer,
		workers:    workers,
		metrics:    collector,
		logger:     logger.Named("quote"),
	}
}

type candidateResult struct {
	pool  *types.Pool
	trade raydium.TradeResult
	ok    bool
}

// Quote проверяет запрос, считает обмен по всем кандидатам параллельно и
// возвращает котировку без идентификатора и окна действия.
func (e *Engine) Quote(ctx context.Context, conn blockchain.Connection, req QuoteRequest) (*types.Quote, error) {
	sourceMint, targetMint, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	pools, err := e.candidates.ListCandidatePools(ctx, conn, sourceMint, targetMint)
	if err != nil {
		return nil, err
	}

	amountIn := new(big.Int).SetUint64(req.Amount)
	results := make([]candidateResult, len(pools))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range pools {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = e.evaluate(&pools[i], amountIn, sourceMint, req.SlippageBps)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.metrics.RecordQuote(false)
		return nil, err
	}

	best := -1
	for i := range results {
		if !results[i].ok {
			continue
		}
		// строго больше: при равенстве остаётся первый кандидат
		if best < 0 || results[i].trade.EstimatedOut.Cmp(results[best].trade.EstimatedOut) > 0 {
			best = i
		}
	}
	if best < 0 {
		e.metrics.RecordQuote(false)
		return nil, &types.NoValidTradeError{
			Source:     sourceMint.String(),
			Target:     targetMint.String(),
			Candidates: len(pools),
		}
	}

	quote, err := e.buildQuote(ctx, results[best], amountIn, sourceMint, req.SlippageBps)
	if err != nil {
		e.metrics.RecordQuote(false)
		return nil, err
	}

	e.metrics.RecordQuote(true)
	e.logger.Debug("quote selected",
		zap.String("pool", results[best].pool.Address.String()),
		zap.String("estimated", quote.EstimatedAmount.BaseUnits()),
		zap.Int("candidates", len(pools)))
	return quote, nil
}

// evaluate расчёт по одному пулу; ошибка исключает пул, не прерывая остальные
func (e *Engine) evaluate(pool *types.Pool, amountIn *big.Int, inputMint solana.PublicKey, slippageBps uint16) candidateResult {
	trade, err := e.computer.ComputeTrade(*pool, amountIn, inputMint, slippageBps)
	if err != nil {
		e.metrics.RecordPoolQuoteFailure()
		e.logger.Debug("pool excluded from quote",
			zap.String("pool", pool.Address.String()),
			zap.String("error", types.SanitizeError(err)))
		return candidateResult{pool: pool}
	}
	if trade.EstimatedOut == nil || trade.MinimumOut == nil ||
		trade.EstimatedOut.Sign() <= 0 || trade.MinimumOut.Cmp(trade.EstimatedOut) > 0 {
		e.metrics.RecordPoolQuoteFailure()
		e.logger.Debug("pool returned inconsistent trade, excluded",
			zap.String("pool", pool.Address.String()))
		return candidateResult{pool: pool}
	}
	return candidateResult{pool: pool, trade: trade, ok: true}
}

func (e *Engine) buildQuote(ctx context.Context, best candidateResult, amountIn *big.Int, inputMint solana.PublicKey, slippageBps uint16) (*types.Quote, error) {
	pool := best.pool
	side, _ := pool.SideFor(inputMint)

	impact, err := catalog.PriceImpact(*pool, inputMint, amountIn)
	if err != nil {
		return nil, err
	}

	selected := pool.Clone()
	return &types.Quote{
		InputToken:      e.candidates.DescribeToken(ctx, side.InputMint, side.InputDecimals),
		OutputToken:     e.candidates.DescribeToken(ctx, side.OutputMint, side.OutputDecimals),
		InputAmount:     types.NewAmount(amountIn, side.InputDecimals),
		EstimatedAmount: types.NewAmount(best.trade.EstimatedOut, side.OutputDecimals),
		MinimumAmount:   types.NewAmount(best.trade.MinimumOut, side.OutputDecimals),
		TradeFee:        types.NewAmount(best.trade.TradeFee, side.InputDecimals),
		OwnerFee:        types.NewAmount(pool.OwnerFee.Apply(amountIn), side.InputDecimals),
		SlippageBps:     slippageBps,
		PriceImpactPct:  impact.FloatString(4),
		QuoteAddresses:  []string{pool.Address.String()},
		Pool:            &selected,
	}, nil
}

func validateRequest(req QuoteRequest) (solana.PublicKey, solana.PublicKey, error) {
	source, err := types.ParseMint("sourceMint", req.SourceMint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	target, err := types.ParseMint("targetMint", req.TargetMint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	if source.Equals(target) {
		return solana.PublicKey{}, solana.PublicKey{}, &types.InvalidParameterError{
			Field:  "targetMint",
			Reason: "must differ from sourceMint",
		}
	}
	if req.Amount == 0 {
		return solana.PublicKey{}, solana.PublicKey{}, &types.InvalidParameterError{
			Field:  "amount",
			Reason: "must be greater than zero",
		}
	}
	if err := types.ValidateSlippage(req.SlippageBps); err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return source, target, nil
}
