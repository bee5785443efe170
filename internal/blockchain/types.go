// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// Connection сетевой доступ к леджеру, которым пользуется ядро.
type Connection interface {
	// Endpoint адрес узла, через который открыт handle.
	Endpoint() string
	// Probe дешёвая проверка живости узла.
	Probe(ctx context.Context) error
	// LatestBlockReference последний blockhash и высота, до которой он действителен.
	LatestBlockReference(ctx context.Context) (types.BlockReference, error)
	// GetMultipleAccountsData сырые данные аккаунтов; nil для отсутствующих.
	GetMultipleAccountsData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error)
	// Submit однократная отправка подписанной транзакции.
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// Confirm ждёт подтверждения, пока действителен ref.
	Confirm(ctx context.Context, sig solana.Signature, ref types.BlockReference) error
}
