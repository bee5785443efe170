// internal/types/amount.go
package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Amount количество токена в base units вместе с decimals токена.
type Amount struct {
	Raw      *big.Int
	Decimals uint8
}

// NewAmount создаёт Amount, копируя raw.
func NewAmount(raw *big.Int, decimals uint8) Amount {
	if raw == nil {
		raw = new(big.Int)
	}
	return Amount{Raw: new(big.Int).Set(raw), Decimals: decimals}
}

// AmountFromUint64 создаёт Amount из uint64.
func AmountFromUint64(raw uint64, decimals uint8) Amount {
	return Amount{Raw: new(big.Int).SetUint64(raw), Decimals: decimals}
}

// BaseUnits возвращает целое количество в base units.
func (a Amount) BaseUnits() string {
	if a.Raw == nil {
		return "0"
	}
	return a.Raw.String()
}

// UI возвращает количество в человекочитаемых единицах.
func (a Amount) UI() string {
	return FormatUnits(a.Raw, a.Decimals)
}

type amountJSON struct {
	Amount   string `json:"amount"`
	UIAmount string `json:"uiAmount"`
	Decimals uint8  `json:"decimals"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountJSON{
		Amount:   a.BaseUnits(),
		UIAmount: a.UI(),
		Decimals: a.Decimals,
	})
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var aux amountJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	raw, ok := new(big.Int).SetString(aux.Amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount %q", aux.Amount)
	}
	a.Raw = raw
	a.Decimals = aux.Decimals
	return nil
}

// FormatUnits делит raw на 10^decimals целочисленно и всегда выводит ровно
// decimals знаков после точки, без округления.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		raw = new(big.Int)
	}
	if decimals == 0 {
		return raw.String()
	}

	abs := new(big.Int).Abs(raw)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	fracStr := frac.String()
	if pad := int(decimals) - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}

	sign := ""
	if raw.Sign() < 0 {
		sign = "-"
	}
	return sign + whole.String() + "." + fracStr
}

// ParseUnits обратная операция к FormatUnits: "1.5" с decimals 6 → 1500000.
// Лишние знаки после точки считаются ошибкой, а не округляются.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %q has more than %d fractional digits", s, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	raw, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return raw, nil
}
