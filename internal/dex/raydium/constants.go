// internal/dex/raydium/constants.go
package raydium

import (
	"github.com/gagliardetto/solana-go"
)

// Program IDs
var (
	// Используем MPK для краткости, так как это константы
	TokenProgramID     = solana.MPK("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	RaydiumV4ProgramID = solana.MPK("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	OpenBookProgramID  = solana.MPK("srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")
	WrappedSolMint     = solana.MPK("So11111111111111111111111111111111111111112")
)

// SwapBaseInInstruction индекс инструкции swap с фиксированным входом
const SwapBaseInInstruction uint8 = 9

// AmmInfo v4 layout: u64 поля идут подряд с нуля, затем блок pubkey.
const (
	AmmInfoSize = 752

	StatusOffset        = 0
	BaseDecimalsOffset  = 32
	QuoteDecimalsOffset = 40

	TradeFeeNumeratorOffset   = 144
	TradeFeeDenominatorOffset = 152
	PnlNumeratorOffset        = 160
	PnlDenominatorOffset      = 168
	SwapFeeNumeratorOffset    = 176
	SwapFeeDenominatorOffset  = 184
	BaseNeedTakePnlOffset     = 192
	QuoteNeedTakePnlOffset    = 200

	BaseVaultOffset     = 336
	QuoteVaultOffset    = 368
	BaseMintOffset      = 400
	QuoteMintOffset     = 432
	OpenOrdersOffset    = 496
	MarketIDOffset      = 528
	MarketProgramOffset = 560
	TargetOrdersOffset  = 592
)

// SPL token account layout
const (
	TokenAccountSize         = 165
	TokenAccountAmountOffset = 64
)

// Pool status
const (
	PoolStatusUninitialized uint64 = 0
	PoolStatusInitialized   uint64 = 1
	PoolStatusDisabled      uint64 = 2
	PoolStatusSwapOnly      uint64 = 6
)

// Ключи Pool.Extra, которые читает BuildSwapInstruction.
const (
	ExtraProgram          = "program"
	ExtraAuthority        = "authority"
	ExtraOpenOrders       = "openOrders"
	ExtraTargetOrders     = "targetOrders"
	ExtraBaseVault        = "baseVault"
	ExtraQuoteVault       = "quoteVault"
	ExtraMarketProgram    = "marketProgram"
	ExtraMarket           = "market"
	ExtraMarketBids       = "marketBids"
	ExtraMarketAsks       = "marketAsks"
	ExtraMarketEventQueue = "marketEventQueue"
	ExtraMarketBaseVault  = "marketBaseVault"
	ExtraMarketQuoteVault = "marketQuoteVault"
	ExtraMarketAuthority  = "marketAuthority"
)

// swapAccountKeys ключи Extra в порядке аккаунтов SwapBaseIn
var swapAccountKeys = []string{
	ExtraAuthority,
	ExtraOpenOrders,
	ExtraTargetOrders,
	ExtraBaseVault,
	ExtraQuoteVault,
	ExtraMarketProgram,
	ExtraMarket,
	ExtraMarketBids,
	ExtraMarketAsks,
	ExtraMarketEventQueue,
	ExtraMarketBaseVault,
	ExtraMarketQuoteVault,
	ExtraMarketAuthority,
}
