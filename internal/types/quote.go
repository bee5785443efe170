// internal/types/quote.go
package types

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// QuoteValidity фиксированное окно жизни котировки.
const QuoteValidity = 60 * time.Second

// Quote неизменяемая запись предложенного обмена.
type Quote struct {
	InputToken  TokenInfo `json:"inputToken"`
	OutputToken TokenInfo `json:"outputToken"`

	InputAmount     Amount `json:"inputAmount"`
	EstimatedAmount Amount `json:"estimatedAmount"`
	MinimumAmount   Amount `json:"minimumAmount"`
	TradeFee        Amount `json:"tradeFee"`
	OwnerFee        Amount `json:"ownerFee"`

	SlippageBps    uint16   `json:"slippageBps"`
	PriceImpactPct string   `json:"priceImpactPct"`
	QuoteAddresses []string `json:"quoteAddresses"`

	QuoteID    string `json:"quoteId"`
	PreparedAt int64  `json:"preparedAt"`
	ExpiresAt  int64  `json:"expiresAt"`

	// Pool выбранный пул; нужен SwapPreparer, в ответ не сериализуется.
	Pool *Pool `json:"-"`
}

// Stamp присваивает идентификатор и окно действия котировки.
func (q *Quote) Stamp(id string, now time.Time) {
	q.QuoteID = id
	q.PreparedAt = now.UnixMilli()
	q.ExpiresAt = now.Add(QuoteValidity).UnixMilli()
}

// BlockReference blockhash, против которого собрана транзакция.
type BlockReference struct {
	Blockhash            solana.Hash `json:"blockhash"`
	LastValidBlockHeight uint64      `json:"lastValidBlockHeight"`
}

// ComputeBudget подсказка по compute-бюджету транзакции.
type ComputeBudget struct {
	ComputeUnits uint32 `json:"computeUnits"`
	PriorityFee  uint64 `json:"priorityFeeMicroLamports"`
}

// SwapInstructions неподписанная транзакция и всё, что нужно для её подписи.
type SwapInstructions struct {
	Version        string         `json:"version"`
	Transaction    string         `json:"transaction"`
	Signers        []string       `json:"signers"`
	BlockReference BlockReference `json:"blockReference"`
	ComputeBudget  ComputeBudget  `json:"computeBudget"`
}
