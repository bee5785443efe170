// internal/types/pool.go
package types

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// Fee дробь комиссии numerator/denominator.
type Fee struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// Valid комиссия корректна, если знаменатель положителен и дробь не больше единицы.
func (f Fee) Valid() bool {
	return f.Denominator > 0 && f.Numerator <= f.Denominator
}

// Apply возвращает ceil(amount * numerator / denominator): столько программа
// AMM фактически удерживает с входа. Умножение выполняется до деления.
func (f Fee) Apply(amount *big.Int) *big.Int {
	if f.Denominator == 0 || amount == nil {
		return new(big.Int)
	}
	num := new(big.Int).Mul(amount, new(big.Int).SetUint64(f.Numerator))
	q, r := num.QuoRem(num, new(big.Int).SetUint64(f.Denominator), new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// Pool представление пула ликвидности только для чтения.
type Pool struct {
	Address solana.PublicKey `json:"address"`

	BaseMint     solana.PublicKey `json:"baseMint"`
	BaseReserve  *big.Int         `json:"baseReserve"`
	BaseDecimals uint8            `json:"baseDecimals"`

	QuoteMint     solana.PublicKey `json:"quoteMint"`
	QuoteReserve  *big.Int         `json:"quoteReserve"`
	QuoteDecimals uint8            `json:"quoteDecimals"`

	TradeFee Fee `json:"tradeFee"`
	OwnerFee Fee `json:"ownerFee"`

	// Extra аккаунты, специфичные для конкретного AMM; ядро их не читает.
	Extra map[string]solana.PublicKey `json:"extra,omitempty"`
}

// Tradable пул пригоден для котирования: резервы и decimals положительны,
// комиссии корректны.
func (p *Pool) Tradable() bool {
	return p != nil &&
		p.BaseReserve != nil && p.BaseReserve.Sign() > 0 &&
		p.QuoteReserve != nil && p.QuoteReserve.Sign() > 0 &&
		p.BaseDecimals > 0 && p.QuoteDecimals > 0 &&
		p.TradeFee.Valid() && p.OwnerFee.Valid()
}

// Matches пул обслуживает пару в любом порядке.
func (p *Pool) Matches(a, b solana.PublicKey) bool {
	return (p.BaseMint.Equals(a) && p.QuoteMint.Equals(b)) ||
		(p.BaseMint.Equals(b) && p.QuoteMint.Equals(a))
}

// Side резервы и decimals для обмена из inputMint.
type Side struct {
	InputMint      solana.PublicKey
	OutputMint     solana.PublicKey
	ReserveIn      *big.Int
	ReserveOut     *big.Int
	InputDecimals  uint8
	OutputDecimals uint8
	BaseToQuote    bool
}

// SideFor возвращает направление обмена; ok=false, если inputMint не из пула.
func (p *Pool) SideFor(inputMint solana.PublicKey) (Side, bool) {
	switch {
	case p.BaseMint.Equals(inputMint):
		return Side{
			InputMint:      p.BaseMint,
			OutputMint:     p.QuoteMint,
			ReserveIn:      p.BaseReserve,
			ReserveOut:     p.QuoteReserve,
			InputDecimals:  p.BaseDecimals,
			OutputDecimals: p.QuoteDecimals,
			BaseToQuote:    true,
		}, true
	case p.QuoteMint.Equals(inputMint):
		return Side{
			InputMint:      p.QuoteMint,
			OutputMint:     p.BaseMint,
			ReserveIn:      p.QuoteReserve,
			ReserveOut:     p.BaseReserve,
			InputDecimals:  p.QuoteDecimals,
			OutputDecimals: p.BaseDecimals,
		}, true
	default:
		return Side{}, false
	}
}

// Clone глубокая копия, чтобы кэш не делил *big.Int с вызывающим.
func (p Pool) Clone() Pool {
	out := p
	if p.BaseReserve != nil {
		out.BaseReserve = new(big.Int).Set(p.BaseReserve)
	}
	if p.QuoteReserve != nil {
		out.QuoteReserve = new(big.Int).Set(p.QuoteReserve)
	}
	if p.Extra != nil {
		out.Extra = make(map[string]solana.PublicKey, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
