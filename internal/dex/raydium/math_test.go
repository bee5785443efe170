// internal/dex/raydium/math_test.go
package raydium

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

func TestComputeTrade(t *testing.T) {
	s := NewService("", zap.NewNop())

	tests := []struct {
		name         string
		baseReserve  int64
		quoteReserve int64
		fee          types.Fee
		amountIn     int64
		baseToQuote  bool
		slippageBps  uint16
		wantOut      int64
		wantMin      int64
		wantFee      int64
	}{
		{
			// 250_000_000 * 1_000_000 / 501_000_000
			name:        "no fee",
			baseReserve: 500_000_000, quoteReserve: 250_000_000,
			fee:      types.Fee{Numerator: 0, Denominator: 1},
			amountIn: 1_000_000, baseToQuote: true, slippageBps: 50,
			wantOut: 499_001, wantMin: 496_505,
		},
		{
			// fee = ceil(1_000_000 * 25 / 10000) = 2500; net 997_500
			name:        "raydium fee",
			baseReserve: 500_000_000, quoteReserve: 250_000_000,
			fee:      types.Fee{Numerator: 25, Denominator: 10000},
			amountIn: 1_000_000, baseToQuote: true, slippageBps: 100,
			wantOut: 497_756, wantMin: 492_778, wantFee: 2500,
		},
		{
			name:        "fee rounds up",
			baseReserve: 1_000_000, quoteReserve: 1_000_000,
			fee:      types.Fee{Numerator: 25, Denominator: 10000},
			amountIn: 1001, baseToQuote: true, slippageBps: 0,
			// fee = ceil(2.5025) = 3; net 998; out = 1_000_000*998/1_000_998
			wantOut: 997, wantMin: 997, wantFee: 3,
		},
		{
			name:        "quote to base",
			baseReserve: 500_000_000, quoteReserve: 250_000_000,
			fee:      types.Fee{Numerator: 0, Denominator: 1},
			amountIn: 1_000_000, baseToQuote: false, slippageBps: 0,
			// 500_000_000 * 1_000_000 / 251_000_000
			wantOut: 1_992_031, wantMin: 1_992_031,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := testPool(tt.baseReserve, tt.quoteReserve, tt.fee)
			input := pool.QuoteMint
			if tt.baseToQuote {
				input = pool.BaseMint
			}

			res, err := s.ComputeTrade(pool, big.NewInt(tt.amountIn), input, tt.slippageBps)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, res.EstimatedOut.Int64())
			assert.Equal(t, tt.wantMin, res.MinimumOut.Int64())
			assert.Equal(t, tt.wantFee, res.TradeFee.Int64())
			assert.True(t, res.MinimumOut.Cmp(res.EstimatedOut) <= 0)
		})
	}
}

func TestComputeTrade_Errors(t *testing.T) {
	s := NewService("", zap.NewNop())
	pool := testPool(1_000, 1_000, types.Fee{Numerator: 0, Denominator: 1})

	_, err := s.ComputeTrade(pool, big.NewInt(0), pool.BaseMint, 50)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.ComputeTrade(pool, big.NewInt(10), newKey(), 50)
	assert.ErrorIs(t, err, ErrMintNotInPool)

	// 1000 * 1 / 1001 = 0
	_, err = s.ComputeTrade(pool, big.NewInt(1), pool.BaseMint, 50)
	assert.ErrorIs(t, err, ErrZeroOutput)

	_, err = s.ComputeTrade(pool, big.NewInt(10), pool.BaseMint, 10_001)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)

	bad := testPool(1_000, 1_000, types.Fee{Numerator: 2, Denominator: 1})
	_, err = s.ComputeTrade(bad, big.NewInt(10), bad.BaseMint, 50)
	assert.ErrorIs(t, err, ErrInvalidPoolFees)
}
