// internal/swap/preparer.go
package swap

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-swapquote/internal/storage"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/logger"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-swapquote/internal/wallet"
)

// Preparer превращает котировку в неподписанную транзакцию.
// Ничего не подписывает и не отправляет: результат можно повторить или выбросить.
type Preparer struct {
	connector Connector
	quoter    Quoter
	builder   InstructionBuilder
	priority  *types.PriorityManager
	journal   storage.QuoteJournal
	integrity *Integrity
	opts      Options
	metrics   *metrics.Collector
	logger    *zap.Logger

	newID func() (string, error)
	now   func() time.Time
}

// NewPreparer создаёт Preparer из deps.
func NewPreparer(deps Deps, opts Options) *Preparer {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	priority := deps.Priority
	if priority == nil {
		priority = types.NewPriorityManager(log)
	}
	if opts.Priority == "" {
		opts.Priority = types.PriorityMedium
	}
	return &Preparer{
		connector: deps.Connector,
		quoter:    deps.Quoter,
		builder:   deps.Builder,
		priority:  priority,
		journal:   deps.Journal,
		integrity: deps.Integrity,
		opts:      opts,
		metrics:   deps.Metrics,
		logger:    log.Named("preparer"),
		newID:     newQuoteID,
		now:       time.Now,
	}
}

// Prepare проходит START → CONNECTING → QUOTING → BUILDING → READY.
// Любая ошибка даёт ответ FAILED с пустым quoteId.
func (p *Preparer) Prepare(ctx context.Context, req PrepareRequest) types.SwapResponse {
	log := logger.WithOperation(p.logger, "prepare")
	defer logger.TrackPerformance(log, "prepare")()
	m := newMachine(log)

	user, err := types.ParseMint("user", req.User)
	if err != nil {
		return p.fail(m, err)
	}

	conn, q, err := p.connectAndQuote(ctx, m, req.Endpoint, req)
	if err != nil {
		return p.fail(m, err)
	}

	m.enter(types.StageBuilding)
	instructions, err := p.build(ctx, conn, q, req, user)
	if err != nil {
		return p.fail(m, err)
	}

	id, err := p.newID()
	if err != nil {
		return p.fail(m, fmt.Errorf("generate quote id: %w", err))
	}
	q.Stamp(id, p.now())

	if p.journal != nil {
		if err := p.journal.RecordPrepared(ctx, journalRecord(q, req.User)); err != nil {
			return p.fail(m, fmt.Errorf("record prepared quote: %w", err))
		}
	}

	m.enter(types.StageReady)
	resp := types.SuccessResponse(&types.ResponseData{Quote: q, SwapInstructions: instructions}, quoteMetadata(q))
	if err := p.integrity.Sign(&resp); err != nil {
		return p.fail(m, err)
	}

	logger.WithQuote(log, id).Info("Обмен подготовлен",
		zap.String("pool", q.QuoteAddresses[0]),
		zap.String("estimated", q.EstimatedAmount.BaseUnits()),
		zap.String("minimum", q.MinimumAmount.BaseUnits()))
	return resp
}

// QuoteOnly та же машина без этапа BUILDING: котировка без транзакции.
func (p *Preparer) QuoteOnly(ctx context.Context, req QuoteOnlyRequest) types.SwapResponse {
	log := logger.WithOperation(p.logger, "quote")
	m := newMachine(log)

	_, q, err := p.connectAndQuote(ctx, m, req.Endpoint, PrepareRequest{QuoteRequest: req.QuoteRequest})
	if err != nil {
		return p.fail(m, err)
	}

	id, err := p.newID()
	if err != nil {
		return p.fail(m, fmt.Errorf("generate quote id: %w", err))
	}
	q.Stamp(id, p.now())

	m.enter(types.StageReady)
	resp := types.SuccessResponse(&types.ResponseData{Quote: q}, quoteMetadata(q))
	if err := p.integrity.Sign(&resp); err != nil {
		return p.fail(m, err)
	}
	return resp
}

func (p *Preparer) connectAndQuote(ctx context.Context, m *machine, endpoint string, req PrepareRequest) (blockchain.Connection, *types.Quote, error) {
	m.enter(types.StageConnecting)
	conn, err := p.connector.Connect(ctx, endpoint, p.opts.MaxRetries)
	if err != nil {
		return nil, nil, err
	}

	m.enter(types.StageQuoting)
	q, err := p.quoter.Quote(ctx, conn, req.QuoteRequest)
	if err != nil {
		return nil, nil, err
	}
	if q.Pool == nil {
		return nil, nil, fmt.Errorf("quote carries no pool")
	}
	return conn, q, nil
}

// build собирает compute budget, создание ATA назначения и сам обмен
func (p *Preparer) build(ctx context.Context, conn blockchain.Connection, q *types.Quote, req PrepareRequest, user solana.PublicKey) (*types.SwapInstructions, error) {
	inputMint, err := solana.PublicKeyFromBase58(q.InputToken.Mint)
	if err != nil {
		return nil, fmt.Errorf("invalid input mint: %w", err)
	}
	outputMint, err := solana.PublicKeyFromBase58(q.OutputToken.Mint)
	if err != nil {
		return nil, fmt.Errorf("invalid output mint: %w", err)
	}

	w := wallet.New(user)
	source, err := w.GetATA(inputMint)
	if err != nil {
		return nil, err
	}
	destination, err := w.GetATA(outputMint)
	if err != nil {
		return nil, err
	}

	budget, err := p.priority.Resolve(p.opts.Priority, p.opts.ComputeUnits, p.opts.PriorityFee)
	if err != nil {
		return nil, err
	}
	instructions := p.priority.Instructions(budget)

	createATA, err := w.CreateATAIdempotentInstruction(user, outputMint)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, createATA)

	if !q.MinimumAmount.Raw.IsUint64() {
		return nil, fmt.Errorf("minimum amount exceeds u64")
	}
	swapIx, err := p.builder.BuildSwapInstruction(*q.Pool, raydium.UserAccounts{
		Owner:       user,
		Source:      source,
		Destination: destination,
	}, req.Amount, q.MinimumAmount.Raw.Uint64())
	if err != nil {
		return nil, fmt.Errorf("build swap instruction: %w", err)
	}
	instructions = append(instructions, swapIx)

	ref, err := conn.LatestBlockReference(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block reference: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, ref.Blockhash, solana.TransactionPayer(user))
	if err != nil {
		return nil, fmt.Errorf("failed to create new transaction: %w", err)
	}
	payload, err := encodeUnsigned(tx)
	if err != nil {
		return nil, err
	}

	return &types.SwapInstructions{
		Version:        TransactionVersion,
		Transaction:    payload,
		Signers:        requiredSigners(tx),
		BlockReference: ref,
		ComputeBudget:  budget,
	}, nil
}

func (p *Preparer) fail(m *machine, err error) types.SwapResponse {
	stage := m.stage
	m.enter(types.StageFailed)
	p.metrics.RecordPrepareFailure(string(stage))
	p.logger.Warn("Подготовка обмена не удалась",
		zap.String("stage", string(stage)),
		zap.String("error", types.SanitizeError(err)))

	resp := types.ErrorResponse(err, types.NewFailureMetadata(p.now(), stage))
	if signErr := p.integrity.Sign(&resp); signErr != nil {
		p.logger.Warn("failed to sign error response", zap.Error(signErr))
	}
	return resp
}

func quoteMetadata(q *types.Quote) types.Metadata {
	return types.Metadata{QuoteID: q.QuoteID, PreparedAt: q.PreparedAt, ExpiresAt: q.ExpiresAt}
}

func journalRecord(q *types.Quote, user string) *storage.QuoteRecord {
	rec := &storage.QuoteRecord{
		QuoteID:         q.QuoteID,
		UserAddress:     user,
		InputMint:       q.InputToken.Mint,
		OutputMint:      q.OutputToken.Mint,
		InputAmount:     q.InputAmount.BaseUnits(),
		EstimatedAmount: q.EstimatedAmount.BaseUnits(),
		MinimumAmount:   q.MinimumAmount.BaseUnits(),
		PreparedAt:      q.PreparedAt,
		ExpiresAt:       q.ExpiresAt,
	}
	if len(q.QuoteAddresses) > 0 {
		rec.PoolAddress = q.QuoteAddresses[0]
	}
	return rec
}
