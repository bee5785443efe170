// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// AssociatedTokenProgramID программа ассоциированных токен-аккаунтов
var AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

// createIdempotent код инструкции CreateIdempotent
const createIdempotent = 1

// Wallet публичная сторона кошелька пользователя: адрес и его ATA.
// Приватный ключ здесь не хранится.
type Wallet struct {
	PublicKey solana.PublicKey

	atas sync.Map // mint string -> solana.PublicKey
}

// New создаёт кошелёк для адреса пользователя.
func New(owner solana.PublicKey) *Wallet {
	return &Wallet{PublicKey: owner}
}

// Parse разбирает base58-адрес пользователя.
func Parse(address string) (*Wallet, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}
	return New(owner), nil
}

// GetATA возвращает адрес ассоциированного токен-аккаунта (ATA) для заданного токена (mint).
// Если адрес уже был вычислен ранее, возвращается значение из кеша.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	key := mint.String()
	if ata, ok := w.atas.Load(key); ok {
		return ata.(solana.PublicKey), nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive ATA for mint %s: %w", mint, err)
	}
	w.atas.Store(key, ata)
	return ata, nil
}

// CreateATAIdempotentInstruction создаёт ATA кошелька для mint, если его ещё нет.
// payer оплачивает аренду.
func (w *Wallet) CreateATAIdempotentInstruction(payer, mint solana.PublicKey) (solana.Instruction, error) {
	ata, err := w.GetATA(mint)
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(
		AssociatedTokenProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: w.PublicKey, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{createIdempotent},
	), nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
