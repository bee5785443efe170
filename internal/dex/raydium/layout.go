// internal/dex/raydium/layout.go
package raydium

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

var (
	ErrInvalidAccountData = errors.New("invalid account data")
	ErrPoolNotSwappable   = errors.New("pool status does not allow swaps")
)

// AmmInfo поля аккаунта AMM v4, нужные для котирования.
type AmmInfo struct {
	Status        uint64
	BaseDecimals  uint8
	QuoteDecimals uint8

	TradeFee types.Fee
	Pnl      types.Fee
	SwapFee  types.Fee

	BaseNeedTakePnl  uint64
	QuoteNeedTakePnl uint64

	BaseVault     solana.PublicKey
	QuoteVault    solana.PublicKey
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	OpenOrders    solana.PublicKey
	MarketID      solana.PublicKey
	MarketProgram solana.PublicKey
	TargetOrders  solana.PublicKey
}

// Swappable статус допускает обмен
func (a *AmmInfo) Swappable() bool {
	return a.Status == PoolStatusInitialized || a.Status == PoolStatusSwapOnly
}

// OwnerFee доля swap fee, уходящая в pnl протокола: swapFee * pnl.
// При переполнении u64 возвращается нулевая дробь, и пул становится неторгуемым.
func (a *AmmInfo) OwnerFee() types.Fee {
	numHi, num := bits.Mul64(a.SwapFee.Numerator, a.Pnl.Numerator)
	denHi, den := bits.Mul64(a.SwapFee.Denominator, a.Pnl.Denominator)
	if numHi != 0 || denHi != 0 {
		return types.Fee{}
	}
	return types.Fee{Numerator: num, Denominator: den}
}

// DecodeAmmInfo разбирает данные аккаунта AMM v4
func DecodeAmmInfo(data []byte) (*AmmInfo, error) {
	if len(data) < AmmInfoSize {
		return nil, fmt.Errorf("%w: amm account has %d bytes, need %d", ErrInvalidAccountData, len(data), AmmInfoSize)
	}

	u64 := func(offset int) uint64 {
		return binary.LittleEndian.Uint64(data[offset : offset+8])
	}
	key := func(offset int) solana.PublicKey {
		return solana.PublicKeyFromBytes(data[offset : offset+solana.PublicKeyLength])
	}

	baseDecimals, quoteDecimals := u64(BaseDecimalsOffset), u64(QuoteDecimalsOffset)
	if baseDecimals > 255 || quoteDecimals > 255 {
		return nil, fmt.Errorf("%w: decimals out of range (%d, %d)", ErrInvalidAccountData, baseDecimals, quoteDecimals)
	}

	return &AmmInfo{
		Status:        u64(StatusOffset),
		BaseDecimals:  uint8(baseDecimals),
		QuoteDecimals: uint8(quoteDecimals),
		TradeFee: types.Fee{
			Numerator:   u64(TradeFeeNumeratorOffset),
			Denominator: u64(TradeFeeDenominatorOffset),
		},
		Pnl: types.Fee{
			Numerator:   u64(PnlNumeratorOffset),
			Denominator: u64(PnlDenominatorOffset),
		},
		SwapFee: types.Fee{
			Numerator:   u64(SwapFeeNumeratorOffset),
			Denominator: u64(SwapFeeDenominatorOffset),
		},
		BaseNeedTakePnl:  u64(BaseNeedTakePnlOffset),
		QuoteNeedTakePnl: u64(QuoteNeedTakePnlOffset),
		BaseVault:        key(BaseVaultOffset),
		QuoteVault:       key(QuoteVaultOffset),
		BaseMint:         key(BaseMintOffset),
		QuoteMint:        key(QuoteMintOffset),
		OpenOrders:       key(OpenOrdersOffset),
		MarketID:         key(MarketIDOffset),
		MarketProgram:    key(MarketProgramOffset),
		TargetOrders:     key(TargetOrdersOffset),
	}, nil
}

// DecodeTokenAmount читает баланс SPL token аккаунта
func DecodeTokenAmount(data []byte) (uint64, error) {
	if len(data) < TokenAccountSize {
		return 0, fmt.Errorf("%w: token account has %d bytes, need %d", ErrInvalidAccountData, len(data), TokenAccountSize)
	}
	return binary.LittleEndian.Uint64(data[TokenAccountAmountOffset : TokenAccountAmountOffset+8]), nil
}
