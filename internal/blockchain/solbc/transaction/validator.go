// internal/blockchain/solbc/transaction/validator.go
package transaction

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// ValidateSigned проверяет подписанную транзакцию перед отправкой:
// blockhash совпадает с ref, user среди подписантов, подписи заполнены и верны.
func (v *Validator) ValidateSigned(tx *solana.Transaction, user solana.PublicKey, ref types.BlockReference) error {
	if err := v.ValidateBlockhash(tx, ref); err != nil {
		return err
	}
	if err := v.ValidateSigners(tx, user); err != nil {
		return err
	}
	if err := v.ValidateInstructions(tx.Message.Instructions); err != nil {
		return err
	}
	if err := v.ValidateSignatures(tx); err != nil {
		return err
	}

	v.logger.Debug("Транзакция прошла проверку",
		zap.String("user", user.String()),
		zap.Int("signatures", len(tx.Signatures)))
	return nil
}

// MatchesPrepared подписанная транзакция несёт то же сообщение, что и подготовленная.
func (v *Validator) MatchesPrepared(prepared, signed *solana.Transaction) error {
	want, err := prepared.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal prepared message: %w", err)
	}
	got, err := signed.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal signed message: %w", err)
	}
	if !bytes.Equal(want, got) {
		return fmt.Errorf("%w: signed message differs from prepared payload", ErrInvalidInstruction)
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction, ref types.BlockReference) error {
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		return ErrInvalidBlockhash
	}
	if ref.Blockhash != (solana.Hash{}) && tx.Message.RecentBlockhash != ref.Blockhash {
		return fmt.Errorf("%w: transaction references %s, prepared against %s",
			ErrInvalidBlockhash, tx.Message.RecentBlockhash, ref.Blockhash)
	}
	return nil
}

func (v *Validator) ValidateSigners(tx *solana.Transaction, user solana.PublicKey) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 {
		return ErrMissingSigner
	}
	if required > MaxRequiredSignatures {
		return fmt.Errorf("%w: %d", ErrTooManySigners, required)
	}
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("%w: header requires %d signers, message has %d keys",
			ErrInvalidSignature, required, len(tx.Message.AccountKeys))
	}
	for _, key := range tx.Message.AccountKeys[:required] {
		if key.Equals(user) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrMissingSigner, user)
}

func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		return fmt.Errorf("%w: have %d signatures, need %d", ErrInvalidSignature, len(tx.Signatures), required)
	}
	for i, sig := range tx.Signatures {
		if sig == (solana.Signature{}) {
			return fmt.Errorf("%w: signature slot %d is empty", ErrInvalidSignature, i)
		}
	}
	if err := tx.VerifySignatures(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func (v *Validator) ValidateInstructions(instructions []solana.CompiledInstruction) error {
	if len(instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}
