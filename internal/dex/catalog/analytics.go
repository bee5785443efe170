// internal/dex/catalog/analytics.go
package catalog

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// MaxDepthBps верхняя граница сдвига цены для Depth
const MaxDepthBps = 10_000

// PriceImpact доля входа в резерве после сделки, в процентах:
// amount / (reserveIn + amount) * 100.
func PriceImpact(pool types.Pool, inputMint solana.PublicKey, amount *big.Int) (*big.Rat, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	side, ok := pool.SideFor(inputMint)
	if !ok {
		return nil, fmt.Errorf("token %s not found in pool %s", inputMint, pool.Address)
	}
	if side.ReserveIn == nil || side.ReserveIn.Sign() <= 0 {
		return nil, fmt.Errorf("pool %s has empty reserve", pool.Address)
	}

	total := new(big.Int).Add(side.ReserveIn, amount)
	pct := new(big.Rat).SetFrac(new(big.Int).Mul(amount, big.NewInt(100)), total)
	return pct, nil
}

// MarketDepth резерв quote-токена, при котором цена сдвинется на ±bps.
type MarketDepth struct {
	// CurrentPrice quoteReserve / baseReserve в base units
	CurrentPrice *big.Rat
	Upper        *big.Int
	Lower        *big.Int
}

// Depth для x*y=k и цены p=y/x резерв при цене p' равен sqrt(k*p'),
// то есть y*sqrt(1±bps/10000). Корень берётся с округлением вниз.
func Depth(pool types.Pool, bps uint32) (MarketDepth, error) {
	if bps > MaxDepthBps {
		return MarketDepth{}, fmt.Errorf("depth must be at most %d bps", MaxDepthBps)
	}
	if pool.BaseReserve == nil || pool.QuoteReserve == nil ||
		pool.BaseReserve.Sign() <= 0 || pool.QuoteReserve.Sign() <= 0 {
		return MarketDepth{}, fmt.Errorf("pool %s has empty reserves", pool.Address)
	}

	at := func(factor int64) *big.Int {
		sq := new(big.Int).Mul(pool.QuoteReserve, pool.QuoteReserve)
		sq.Mul(sq, big.NewInt(factor))
		sq.Quo(sq, big.NewInt(MaxDepthBps))
		return sq.Sqrt(sq)
	}

	return MarketDepth{
		CurrentPrice: new(big.Rat).SetFrac(pool.QuoteReserve, pool.BaseReserve),
		Upper:        at(MaxDepthBps + int64(bps)),
		Lower:        at(MaxDepthBps - int64(bps)),
	}, nil
}
