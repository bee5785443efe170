// internal/dex/raydium/fixtures_test.go
package raydium

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// MockConnection реализует blockchain.Connection
type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Endpoint() string { return "mock" }

func (m *MockConnection) Probe(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConnection) LatestBlockReference(ctx context.Context) (types.BlockReference, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.BlockReference), args.Error(1)
}

func (m *MockConnection) GetMultipleAccountsData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error) {
	args := m.Called(ctx, accounts)
	res, _ := args.Get(0).([][]byte)
	return res, args.Error(1)
}

func (m *MockConnection) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockConnection) Confirm(ctx context.Context, sig solana.Signature, ref types.BlockReference) error {
	return m.Called(ctx, sig, ref).Error(0)
}

// ammFixture параметры синтетического аккаунта AMM
type ammFixture struct {
	status       uint64
	baseDecimals uint64
	quoteDec     uint64
	swapFee      types.Fee
	pnl          types.Fee
	basePnl      uint64
	quotePnl     uint64
	baseVault    solana.PublicKey
	quoteVault   solana.PublicKey
	baseMint     solana.PublicKey
	quoteMint    solana.PublicKey
	openOrders   solana.PublicKey
	market       solana.PublicKey
	marketProg   solana.PublicKey
	targetOrders solana.PublicKey
}

func (f ammFixture) bytes() []byte {
	data := make([]byte, AmmInfoSize)
	put := func(offset int, v uint64) { binary.LittleEndian.PutUint64(data[offset:], v) }
	key := func(offset int, k solana.PublicKey) { copy(data[offset:], k[:]) }

	put(StatusOffset, f.status)
	put(BaseDecimalsOffset, f.baseDecimals)
	put(QuoteDecimalsOffset, f.quoteDec)
	put(TradeFeeNumeratorOffset, 25)
	put(TradeFeeDenominatorOffset, 10000)
	put(PnlNumeratorOffset, f.pnl.Numerator)
	put(PnlDenominatorOffset, f.pnl.Denominator)
	put(SwapFeeNumeratorOffset, f.swapFee.Numerator)
	put(SwapFeeDenominatorOffset, f.swapFee.Denominator)
	put(BaseNeedTakePnlOffset, f.basePnl)
	put(QuoteNeedTakePnlOffset, f.quotePnl)
	key(BaseVaultOffset, f.baseVault)
	key(QuoteVaultOffset, f.quoteVault)
	key(BaseMintOffset, f.baseMint)
	key(QuoteMintOffset, f.quoteMint)
	key(OpenOrdersOffset, f.openOrders)
	key(MarketIDOffset, f.market)
	key(MarketProgramOffset, f.marketProg)
	key(TargetOrdersOffset, f.targetOrders)
	return data
}

func tokenAccount(amount uint64) []byte {
	data := make([]byte, TokenAccountSize)
	binary.LittleEndian.PutUint64(data[TokenAccountAmountOffset:], amount)
	return data
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

// poolFixture согласованные JSON-описание и AMM-аккаунт одного пула
type poolFixture struct {
	info PoolJSONInfo
	amm  ammFixture
}

func newPoolFixture(baseMint, quoteMint solana.PublicKey) poolFixture {
	amm := ammFixture{
		status:       PoolStatusInitialized,
		baseDecimals: 9,
		quoteDec:     6,
		swapFee:      types.Fee{Numerator: 25, Denominator: 10000},
		pnl:          types.Fee{Numerator: 12, Denominator: 100},
		baseVault:    newKey(),
		quoteVault:   newKey(),
		baseMint:     baseMint,
		quoteMint:    quoteMint,
		openOrders:   newKey(),
		market:       newKey(),
		marketProg:   OpenBookProgramID,
		targetOrders: newKey(),
	}
	info := PoolJSONInfo{
		ID:               newKey().String(),
		BaseMint:         baseMint.String(),
		QuoteMint:        quoteMint.String(),
		LpMint:           newKey().String(),
		BaseDecimals:     9,
		QuoteDecimals:    6,
		Version:          4,
		ProgramID:        RaydiumV4ProgramID.String(),
		Authority:        "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1",
		OpenOrders:       amm.openOrders.String(),
		TargetOrders:     amm.targetOrders.String(),
		BaseVault:        amm.baseVault.String(),
		QuoteVault:       amm.quoteVault.String(),
		MarketVersion:    4,
		MarketProgramID:  OpenBookProgramID.String(),
		MarketID:         amm.market.String(),
		MarketAuthority:  newKey().String(),
		MarketBaseVault:  newKey().String(),
		MarketQuoteVault: newKey().String(),
		MarketBids:       newKey().String(),
		MarketAsks:       newKey().String(),
		MarketEventQueue: newKey().String(),
	}
	return poolFixture{info: info, amm: amm}
}

func writePoolList(t *testing.T, list PoolList) string {
	t.Helper()
	data, err := json.Marshal(list)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "pools.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// testPool полностью заполненный пул для расчётов и инструкции
func testPool(baseReserve, quoteReserve int64, fee types.Fee) types.Pool {
	fx := newPoolFixture(newKey(), newKey())
	sp, err := fx.info.parse()
	if err != nil {
		panic(err)
	}
	return types.Pool{
		Address:       sp.id,
		BaseMint:      sp.baseMint,
		BaseReserve:   big.NewInt(baseReserve),
		BaseDecimals:  9,
		QuoteMint:     sp.quoteMint,
		QuoteReserve:  big.NewInt(quoteReserve),
		QuoteDecimals: 6,
		TradeFee:      fee,
		OwnerFee:      types.Fee{Numerator: 0, Denominator: 1},
		Extra:         sp.extra,
	}
}
