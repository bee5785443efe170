// internal/swap/fixtures_test.go
package swap

import (
	"context"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-swapquote/internal/quote"
	"github.com/rovshanmuradov/solana-swapquote/internal/storage/memory"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	endpoint = "https://api.mainnet-beta.solana.com"
)

type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) Connect(ctx context.Context, endpoint string, maxRetries int) (blockchain.Connection, error) {
	args := m.Called(ctx, endpoint, maxRetries)
	conn, _ := args.Get(0).(blockchain.Connection)
	return conn, args.Error(1)
}

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Endpoint() string { return endpoint }

func (m *MockConnection) Probe(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConnection) LatestBlockReference(ctx context.Context) (types.BlockReference, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.BlockReference), args.Error(1)
}

func (m *MockConnection) GetMultipleAccountsData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error) {
	args := m.Called(ctx, accounts)
	data, _ := args.Get(0).([][]byte)
	return data, args.Error(1)
}

func (m *MockConnection) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockConnection) Confirm(ctx context.Context, sig solana.Signature, ref types.BlockReference) error {
	return m.Called(ctx, sig, ref).Error(0)
}

// staticCandidates источник кандидатов с фиксированным набором пулов
type staticCandidates struct {
	pools []types.Pool
}

func (s staticCandidates) ListCandidatePools(_ context.Context, _ blockchain.Connection, source, target solana.PublicKey) ([]types.Pool, error) {
	var out []types.Pool
	for _, p := range s.pools {
		if p.Matches(source, target) && p.Tradable() {
			out = append(out, p.Clone())
		}
	}
	if len(out) == 0 {
		return nil, &types.NoRouteError{Source: source.String(), Target: target.String()}
	}
	return out, nil
}

func (s staticCandidates) DescribeToken(_ context.Context, mint solana.PublicKey, decimals uint8) types.TokenInfo {
	return types.UnknownToken(mint, decimals)
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func raydiumPool(baseReserve, quoteReserve int64) types.Pool {
	extra := make(map[string]solana.PublicKey)
	for _, name := range []string{
		raydium.ExtraAuthority, raydium.ExtraOpenOrders, raydium.ExtraTargetOrders,
		raydium.ExtraBaseVault, raydium.ExtraQuoteVault, raydium.ExtraMarketProgram,
		raydium.ExtraMarket, raydium.ExtraMarketBids, raydium.ExtraMarketAsks,
		raydium.ExtraMarketEventQueue, raydium.ExtraMarketBaseVault, raydium.ExtraMarketQuoteVault,
		raydium.ExtraMarketAuthority,
	} {
		extra[name] = newKey()
	}
	return types.Pool{
		Address:       newKey(),
		BaseMint:      solana.MustPublicKeyFromBase58(solMint),
		BaseReserve:   big.NewInt(baseReserve),
		BaseDecimals:  9,
		QuoteMint:     solana.MustPublicKeyFromBase58(usdcMint),
		QuoteReserve:  big.NewInt(quoteReserve),
		QuoteDecimals: 6,
		TradeFee:      types.Fee{Numerator: 25, Denominator: 10_000},
		OwnerFee:      types.Fee{Numerator: 0, Denominator: 1},
		Extra:         extra,
	}
}

type harness struct {
	connector *MockConnector
	conn      *MockConnection
	journal   *memory.QuoteJournal
	ref       types.BlockReference
	user      solana.Wallet
	preparer  *Preparer
	executor  *Executor
	now       time.Time
}

func newHarness(t *testing.T, integrity *Integrity, pools ...types.Pool) *harness {
	t.Helper()

	h := &harness{
		connector: new(MockConnector),
		conn:      new(MockConnection),
		journal:   memory.NewQuoteJournal(),
		ref: types.BlockReference{
			Blockhash:            solana.HashFromBytes(newKey().Bytes()),
			LastValidBlockHeight: 1_000,
		},
		user: *solana.NewWallet(),
		now:  time.UnixMilli(1_700_000_000_000),
	}
	h.connector.On("Connect", mock.Anything, endpoint, 3).Return(h.conn, nil).Maybe()
	h.conn.On("LatestBlockReference", mock.Anything).Return(h.ref, nil).Maybe()

	ray := raydium.NewService("", zap.NewNop())
	deps := Deps{
		Connector: h.connector,
		Quoter:    quote.NewEngine(staticCandidates{pools: pools}, ray, 2, nil, zap.NewNop()),
		Builder:   ray,
		Journal:   h.journal,
		Integrity: integrity,
		Logger:    zap.NewNop(),
	}
	opts := Options{MaxRetries: 3, Priority: types.PriorityMedium}

	h.preparer = NewPreparer(deps, opts)
	h.preparer.now = func() time.Time { return h.now }
	h.executor = NewExecutor(deps, opts)
	h.executor.now = func() time.Time { return h.now }
	return h
}

func (h *harness) prepareRequest(amount uint64) PrepareRequest {
	return PrepareRequest{
		QuoteRequest: quote.QuoteRequest{
			SourceMint:  solMint,
			TargetMint:  usdcMint,
			Amount:      amount,
			SlippageBps: 50,
		},
		Endpoint: endpoint,
		User:     h.user.PublicKey().String(),
	}
}

// sign подписывает подготовленный payload ключом пользователя
func (h *harness) sign(t *testing.T, resp types.SwapResponse) string {
	t.Helper()
	tx, err := decodeTransaction(resp.Data.SwapInstructions.Transaction)
	require.NoError(t, err)

	tx.Signatures = nil
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(h.user.PublicKey()) {
			return &h.user.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}
