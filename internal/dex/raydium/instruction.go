// internal/dex/raydium/instruction.go
package raydium

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// SwapBaseInDataSize 1 (индекс) + 8 (amountIn) + 8 (minAmountOut)
const SwapBaseInDataSize = 17

// UserAccounts аккаунты пользователя для обмена
type UserAccounts struct {
	Owner       solana.PublicKey
	Source      solana.PublicKey
	Destination solana.PublicKey
}

// SwapBaseInData данные инструкции SwapBaseIn
type SwapBaseInData struct {
	AmountIn     uint64
	MinAmountOut uint64
}

// BuildSwapInstruction создает инструкцию SwapBaseIn для пула
func (s *Service) BuildSwapInstruction(pool types.Pool, user UserAccounts, amountIn, minAmountOut uint64) (solana.Instruction, error) {
	if user.Owner.IsZero() {
		return nil, fmt.Errorf("user authority is required")
	}
	if user.Source.IsZero() || user.Destination.IsZero() {
		return nil, fmt.Errorf("user token accounts are required")
	}
	if pool.Address.IsZero() {
		return nil, fmt.Errorf("AMM ID is required")
	}
	if amountIn == 0 {
		return nil, ErrInvalidAmount
	}

	keys := make([]solana.PublicKey, len(swapAccountKeys))
	for i, name := range swapAccountKeys {
		key, ok := pool.Extra[name]
		if !ok || key.IsZero() {
			return nil, fmt.Errorf("pool %s: missing %s account", pool.Address, name)
		}
		keys[i] = key
	}

	programID := RaydiumV4ProgramID
	if p, ok := pool.Extra[ExtraProgram]; ok && !p.IsZero() {
		programID = p
	}

	data, err := EncodeSwapBaseIn(SwapBaseInData{AmountIn: amountIn, MinAmountOut: minAmountOut})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize instruction data: %w", err)
	}

	// порядок аккаунтов SwapBaseIn: token program, amm, затем keys как в swapAccountKeys
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(TokenProgramID, false, false),
		solana.NewAccountMeta(pool.Address, true, false),
	}
	for i, key := range keys {
		writable := true
		switch swapAccountKeys[i] {
		case ExtraAuthority, ExtraMarketProgram, ExtraMarketAuthority:
			writable = false
		}
		accounts = append(accounts, solana.NewAccountMeta(key, writable, false))
	}
	accounts = append(accounts,
		solana.NewAccountMeta(user.Source, true, false),
		solana.NewAccountMeta(user.Destination, true, false),
		solana.NewAccountMeta(user.Owner, false, true),
	)

	s.logger.Debug("Building Raydium swap instruction",
		zap.String("pool", pool.Address.String()),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("min_amount_out", minAmountOut),
		zap.Int("num_accounts", len(accounts)))

	return solana.NewInstruction(programID, accounts, data), nil
}

// EncodeSwapBaseIn сериализует данные инструкции: [9][amountIn LE][minOut LE]
func EncodeSwapBaseIn(d SwapBaseInData) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint8(SwapBaseInInstruction); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(d.AmountIn, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(d.MinAmountOut, bin.LE); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSwapBaseIn разбирает данные инструкции SwapBaseIn
func DecodeSwapBaseIn(data []byte) (SwapBaseInData, error) {
	if len(data) != SwapBaseInDataSize {
		return SwapBaseInData{}, fmt.Errorf("%w: swap data has %d bytes", ErrInvalidAccountData, len(data))
	}
	dec := bin.NewBinDecoder(data)
	index, err := dec.ReadUint8()
	if err != nil {
		return SwapBaseInData{}, err
	}
	if index != SwapBaseInInstruction {
		return SwapBaseInData{}, fmt.Errorf("%w: instruction index %d", ErrInvalidAccountData, index)
	}
	var out SwapBaseInData
	if out.AmountIn, err = dec.ReadUint64(bin.LE); err != nil {
		return SwapBaseInData{}, err
	}
	if out.MinAmountOut, err = dec.ReadUint64(bin.LE); err != nil {
		return SwapBaseInData{}, err
	}
	return out, nil
}
