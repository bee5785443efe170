// internal/quote/engine_test.go
package quote

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

type MockCandidates struct {
	mock.Mock
}

func (m *MockCandidates) ListCandidatePools(ctx context.Context, conn blockchain.Connection, sourceMint, targetMint solana.PublicKey) ([]types.Pool, error) {
	args := m.Called(ctx, conn, sourceMint, targetMint)
	pools, _ := args.Get(0).([]types.Pool)
	return pools, args.Error(1)
}

func (m *MockCandidates) DescribeToken(ctx context.Context, mint solana.PublicKey, decimals uint8) types.TokenInfo {
	return types.UnknownToken(mint, decimals)
}

type MockComputer struct {
	mock.Mock
}

func (m *MockComputer) ComputeTrade(pool types.Pool, amountIn *big.Int, inputMint solana.PublicKey, slippageBps uint16) (raydium.TradeResult, error) {
	args := m.Called(pool.Address, amountIn.Uint64(), inputMint, slippageBps)
	res, _ := args.Get(0).(raydium.TradeResult)
	return res, args.Error(1)
}

var (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func testPool(base, quote string, baseReserve, quoteReserve int64, fee types.Fee) types.Pool {
	return types.Pool{
		Address:       solana.NewWallet().PublicKey(),
		BaseMint:      solana.MustPublicKeyFromBase58(base),
		BaseReserve:   big.NewInt(baseReserve),
		BaseDecimals:  9,
		QuoteMint:     solana.MustPublicKeyFromBase58(quote),
		QuoteReserve:  big.NewInt(quoteReserve),
		QuoteDecimals: 6,
		TradeFee:      fee,
		OwnerFee:      types.Fee{Numerator: 0, Denominator: 1},
	}
}

func trade(est, min int64) raydium.TradeResult {
	return raydium.TradeResult{EstimatedOut: big.NewInt(est), MinimumOut: big.NewInt(min)}
}

func request(amount uint64, bps uint16) QuoteRequest {
	return QuoteRequest{SourceMint: solMint, TargetMint: usdcMint, Amount: amount, SlippageBps: bps}
}

func TestQuote_ZeroFeeSinglePool(t *testing.T) {
	pool := testPool(solMint, usdcMint, 500_000_000, 250_000_000, types.Fee{Numerator: 0, Denominator: 1})
	cands := new(MockCandidates)
	cands.On("ListCandidatePools", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]types.Pool{pool}, nil)

	engine := NewEngine(cands, raydium.NewService("", zap.NewNop()), 4, nil, zap.NewNop())
	q, err := engine.Quote(context.Background(), nil, request(1_000_000, 50))
	require.NoError(t, err)

	// 250_000_000 * 1_000_000 / 501_000_000
	assert.Equal(t, "499001", q.EstimatedAmount.BaseUnits())
	assert.Equal(t, "0.499001", q.EstimatedAmount.UI())
	assert.Equal(t, "496505", q.MinimumAmount.BaseUnits())
	assert.Equal(t, "0", q.TradeFee.BaseUnits())
	assert.Equal(t, "0.001000000", q.InputAmount.UI())
	assert.Equal(t, "0.1996", q.PriceImpactPct)
	assert.Equal(t, []string{pool.Address.String()}, q.QuoteAddresses)
	assert.Empty(t, q.QuoteID, "идентификатор выдаёт preparer")
	require.NotNil(t, q.Pool)
	assert.Equal(t, pool.Address, q.Pool.Address)
}

func TestQuote_FeesUseExactRational(t *testing.T) {
	pool := testPool(solMint, usdcMint, 500_000_000, 250_000_000, types.Fee{Numerator: 25, Denominator: 10_000})
	pool.OwnerFee = types.Fee{Numerator: 3, Denominator: 10_000}

	cands := new(MockCandidates)
	cands.On("ListCandidatePools", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]types.Pool{pool}, nil)

	engine := NewEngine(cands, raydium.NewService("", zap.NewNop()), 0, nil, nil)
	q, err := engine.Quote(context.Background(), nil, request(1_000_001, 100))
	require.NoError(t, err)

	// 1_000_001 * 25 / 10_000 = 2500.0025, пул удерживает 2501
	assert.Equal(t, "2501", q.TradeFee.BaseUnits())
	assert.Equal(t, "0.000002501", q.TradeFee.UI())
	// 1_000_001 * 3 / 10_000 = 300.0003
	assert.Equal(t, "301", q.OwnerFee.BaseUnits())

	// оценка считается от входа за вычетом той же комиссии
	// 250_000_000 * 997_500 / 500_997_500
	assert.Equal(t, "497756", q.EstimatedAmount.BaseUnits())
	assert.Equal(t, uint16(100), q.SlippageBps)
}

func TestQuote_MinimumNeverExceedsEstimate(t *testing.T) {
	pool := testPool(solMint, usdcMint, 123_456_789, 987_654_321, types.Fee{Numerator: 25, Denominator: 10_000})
	cands := new(MockCandidates)
	cands.On("ListCandidatePools", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]types.Pool{pool}, nil)
	engine := NewEngine(cands, raydium.NewService("", zap.NewNop()), 1, nil, zap.NewNop())

	for _, amount := range []uint64{1_000, 77_777, 1_000_000, 50_000_000} {
		for _, bps := range []uint16{0, 1, 50, 999, 10_000} {
			q, err := engine.Quote(context.Background(), nil, request(amount, bps))
			require.NoError(t, err)
			assert.LessOrEqual(t, q.MinimumAmount.Raw.Cmp(q.EstimatedAmount.Raw), 0,
				"amount=%d bps=%d", amount, bps)
		}
	}
}

func TestQuote_TieKeepsFirstSeen(t *testing.T) {
	fee := types.Fee{Numerator: 0, Denominator: 1}
	first := testPool(solMint, usdcMint, 1, 1, fee)
	second := testPool(solMint, usdcMint, 1, 1, fee)
	third := testPool(solMint, usdcMint, 1, 1, fee)

	cands := new(MockCandidates)
	cands.On("ListCandidatePools", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]types.Pool{first, second, third}, nil)

	comp := new(MockComputer)
	comp.On("ComputeTrade", first.Address, mock.Anything, mock.Anything, mock.Anything).Return(trade(900, 890), nil)
	comp.On("ComputeTrade", second.Address, mock.Anything, mock.Anything, mock.Anything).Return(trade(1000, 990), nil)
	comp.On("ComputeTrade", third.Address, mock.Anything, mock.Anything, mock.Anything).Return(trade(1000, 995), nil)

	engine := NewEngine(cands, comp, 3, nil, zap.NewNop())
	for range 20 {
		q, err := engine.Quote(context.Background(), nil, request(10, 50))
		require.NoError(t, err)
		assert.Equal(t, second.Address.String(), q.QuoteAddresses[0])
		assert.Equal(t, "990", q.MinimumAmount.BaseUnits())
	}
}

func TestQuote_PartialFailure(t *testing.T) {
	fee := types.Fee{Numerator: 0, Denominator: 1}
	broken := testPool(solMint, usdcMint, 1, 1, fee)
	worse := testPool(solMint, usdcMint, 1, 1, fee)
	better := testPool(solMint, usdcMint, 1, 1, fee)

	cands := new(MockCandidates)
	cands.On("ListCandidatePools", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]types.Pool{broken, worse, better}, nil)

	comp := new(MockComputer)
	comp.On("ComputeTrade", broken.Address, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("decode failed"))
	comp.On("ComputeTrade", worse.Address, mock.Anything, mock.Anything, mock.Anything).Return(trade(100, 99), nil)
	comp.On("ComputeTrade", better.Address, mock.Anything, mock.Anything, mock.Anything).Return(trade(200, 199), nil)

	engine := NewEngine(cands, comp, 2, nil, zap.NewNop())
	q, err := engine.Quote(context.Background(), nil, request(10, 50))
	require.NoError(t, err)
	assert.Equal(t, better.Address.String(), q.QuoteAddresses[0])
	comp.AssertNumberOfCalls(t, "ComputeTrade", 3)
}

func TestQuote_AllCandidatesFail(t *testing.T) {
	fee := types.Fee{Numerator: 0, Denominator: 1}
	a := testPool(solMint, usdcMint, 1, 1, fee)
	b := testPool(solMint, usdcMint, 1, 1, fee)

	cands := new(MockCandidates)
	cands.On("ListCandidatePools", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]types.Pool{a, b}, nil)

	comp := new(MockComputer)
	comp.On("ComputeTrade", a.Address, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	// min > est исключает пул так же, как ошибка
	comp.On("ComputeTrade", b.Address, mock.Anything, mock.Anything, mock.Anything).Return(trade(10, 11), nil)

	engine := NewEngine(cands, comp, 2, nil, zap.NewNop())
	_, err := engine.Quote(context.Background(), nil, request(10, 50))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoValidTrade)

	var nv *types.NoValidTradeError
	require.True(t, errors.As(err, &nv))
	assert.Equal(t, 2, nv.Candidates)
}

func TestQuote_NoRoutePropagates(t *testing.T) {
	cands := new(MockCandidates)
	cands.On("ListCandidatePools", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &types.NoRouteError{Source: solMint, Target: usdcMint})

	engine := NewEngine(cands, new(MockComputer), 2, nil, zap.NewNop())
	_, err := engine.Quote(context.Background(), nil, request(10, 50))
	assert.ErrorIs(t, err, types.ErrNoRoute)
}

func TestQuote_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		req   QuoteRequest
		field string
	}{
		{"malformed source", QuoteRequest{SourceMint: "not-base58-0OIl", TargetMint: usdcMint, Amount: 1}, "sourceMint"},
		{"short target", QuoteRequest{SourceMint: solMint, TargetMint: "abc", Amount: 1}, "targetMint"},
		{"empty target", QuoteRequest{SourceMint: solMint, Amount: 1}, "targetMint"},
		{"identical mints", QuoteRequest{SourceMint: solMint, TargetMint: solMint, Amount: 1}, "targetMint"},
		{"zero amount", QuoteRequest{SourceMint: solMint, TargetMint: usdcMint}, "amount"},
		{"slippage too high", QuoteRequest{SourceMint: solMint, TargetMint: usdcMint, Amount: 1, SlippageBps: 10_001}, "slippageBps"},
	}

	cands := new(MockCandidates)
	engine := NewEngine(cands, new(MockComputer), 1, nil, zap.NewNop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Quote(context.Background(), nil, tt.req)
			require.Error(t, err)
			var invalid *types.InvalidParameterError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
	cands.AssertNotCalled(t, "ListCandidatePools", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
