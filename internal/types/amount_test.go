package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{"1000000", 6, "1.000000"},
		{"1", 9, "0.000000001"},
		{"123456789012345678901234567890", 18, "123456789012.345678901234567890"},
		{"0", 6, "0.000000"},
		{"42", 0, "42"},
		{"-1500", 3, "-1.500"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			raw, ok := new(big.Int).SetString(tt.raw, 10)
			require.True(t, ok)
			assert.Equal(t, tt.want, FormatUnits(raw, tt.decimals))
		})
	}
}

func TestFormatUnits_KeepsAllDecimals(t *testing.T) {
	// для токена с большим числом знаков значимые цифры не теряются
	raw, _ := new(big.Int).SetString("999999999999999999", 10)
	assert.Equal(t, "0.999999999999999999", FormatUnits(raw, 18))
}

func TestParseUnits(t *testing.T) {
	raw, err := ParseUnits("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "1500000", raw.String())

	raw, err = ParseUnits("2", 9)
	require.NoError(t, err)
	assert.Equal(t, "2000000000", raw.String())

	_, err = ParseUnits("0.1234567", 6)
	assert.Error(t, err)

	_, err = ParseUnits("abc", 6)
	assert.Error(t, err)
}

func TestAmount_JSON(t *testing.T) {
	a := AmountFromUint64(2500, 3)
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"2500","uiAmount":"2.500","decimals":3}`, string(data))

	var back Amount
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 0, back.Raw.Cmp(a.Raw))
	assert.Equal(t, a.Decimals, back.Decimals)
}

func TestCalculateMinAmountOut(t *testing.T) {
	tests := []struct {
		name     string
		expected int64
		bps      uint16
		want     int64
	}{
		{"zero slippage", 1000, 0, 1000},
		{"half percent", 1000, 50, 995},
		{"floors", 999, 50, 994},
		{"full tolerance", 1000, 10000, 0},
		{"clamped above max", 1000, 20000, 0},
		{"zero expected", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateMinAmountOut(big.NewInt(tt.expected), tt.bps)
			assert.Equal(t, tt.want, got.Int64())
			assert.LessOrEqual(t, got.Int64(), tt.expected)
		})
	}
}

func TestValidateSlippage(t *testing.T) {
	assert.NoError(t, ValidateSlippage(0))
	assert.NoError(t, ValidateSlippage(10000))
	assert.ErrorIs(t, ValidateSlippage(10001), ErrInvalidParameter)
}

func TestFee_Apply(t *testing.T) {
	// 25/10000 от 1_000_000 = 2500 ровно, без потерь на float
	fee := Fee{Numerator: 25, Denominator: 10000}
	assert.Equal(t, "2500", fee.Apply(big.NewInt(1_000_000)).String())

	// умножение раньше деления: 3 * 1/3 = 1, а не 0
	third := Fee{Numerator: 1, Denominator: 3}
	assert.Equal(t, "1", third.Apply(big.NewInt(3)).String())

	// неточное деление округляется вверх: 1001 * 25/10000 = 2.5025
	assert.Equal(t, "3", fee.Apply(big.NewInt(1_001)).String())
	assert.Equal(t, "1", fee.Apply(big.NewInt(1)).String())

	assert.Equal(t, "0", Fee{}.Apply(big.NewInt(10)).String())
	assert.Equal(t, "0", Fee{Numerator: 0, Denominator: 1}.Apply(big.NewInt(10)).String())
	assert.False(t, Fee{Numerator: 2, Denominator: 1}.Valid())
}
