// internal/dex/raydium/math.go
package raydium

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMintNotInPool   = errors.New("mint is not part of pool")
	ErrZeroOutput      = errors.New("output rounds to zero")
	ErrInvalidPoolFees = errors.New("invalid pool fees")
)

// TradeResult оценка обмена по одному пулу в base units
type TradeResult struct {
	EstimatedOut *big.Int
	MinimumOut   *big.Int
	// TradeFee удержанная с входа комиссия в базовых единицах входного токена
	TradeFee *big.Int
}

// ComputeTrade считает обмен amountIn из inputMint по формуле постоянного
// произведения. Комиссия берётся с входа с округлением вверх, как в программе:
//
//	fee = ceil(amountIn * num / den)
//	out = reserveOut * (amountIn - fee) / (reserveIn + amountIn - fee)
func (s *Service) ComputeTrade(pool types.Pool, amountIn *big.Int, inputMint solana.PublicKey, slippageBps uint16) (TradeResult, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return TradeResult{}, ErrInvalidAmount
	}
	if err := types.ValidateSlippage(slippageBps); err != nil {
		return TradeResult{}, err
	}
	if !pool.TradeFee.Valid() {
		return TradeResult{}, ErrInvalidPoolFees
	}

	side, ok := pool.SideFor(inputMint)
	if !ok {
		return TradeResult{}, fmt.Errorf("%w: %s", ErrMintNotInPool, inputMint)
	}
	if side.ReserveIn == nil || side.ReserveOut == nil || side.ReserveIn.Sign() <= 0 || side.ReserveOut.Sign() <= 0 {
		return TradeResult{}, fmt.Errorf("pool %s has empty reserves", pool.Address)
	}

	fee := pool.TradeFee.Apply(amountIn)
	net := new(big.Int).Sub(amountIn, fee)
	if net.Sign() <= 0 {
		return TradeResult{}, ErrZeroOutput
	}

	numerator := new(big.Int).Mul(side.ReserveOut, net)
	denominator := new(big.Int).Add(side.ReserveIn, net)
	out := numerator.Quo(numerator, denominator)
	if out.Sign() <= 0 {
		return TradeResult{}, ErrZeroOutput
	}
	if !out.IsUint64() {
		return TradeResult{}, fmt.Errorf("%w: output exceeds u64", ErrInvalidAmount)
	}

	return TradeResult{
		EstimatedOut: out,
		MinimumOut:   types.CalculateMinAmountOut(out, slippageBps),
		TradeFee:     fee,
	}, nil
}
