// internal/types/slippage.go
package types

import (
	"fmt"
	"math/big"
)

// MaxSlippageBps 100% в базисных пунктах
const MaxSlippageBps uint16 = 10_000

// ValidateSlippage проверяет, что допуск лежит в [0, 10000] bps.
func ValidateSlippage(bps uint16) error {
	if bps > MaxSlippageBps {
		return &InvalidParameterError{
			Field:  "slippageBps",
			Reason: fmt.Sprintf("must be between 0 and %d", MaxSlippageBps),
		}
	}
	return nil
}

// CalculateMinAmountOut вычисляет floor(expected * (10000 - bps) / 10000)
// в base units. Результат никогда не превышает expected.
func CalculateMinAmountOut(expected *big.Int, bps uint16) *big.Int {
	if expected == nil || expected.Sign() <= 0 {
		return new(big.Int)
	}
	if bps > MaxSlippageBps {
		bps = MaxSlippageBps
	}
	keep := new(big.Int).SetUint64(uint64(MaxSlippageBps - bps))
	out := new(big.Int).Mul(expected, keep)
	return out.Quo(out, new(big.Int).SetUint64(uint64(MaxSlippageBps)))
}
