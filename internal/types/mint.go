// internal/types/mint.go
package types

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ParseMint разбирает base58-адрес и возвращает InvalidParameterError для
// любых данных, не дающих ровно 32 байта.
func ParseMint(field, value string) (solana.PublicKey, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return solana.PublicKey{}, &InvalidParameterError{Field: field, Reason: "is empty"}
	}
	raw, err := base58.Decode(value)
	if err != nil {
		return solana.PublicKey{}, &InvalidParameterError{Field: field, Reason: "is not valid base58"}
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, &InvalidParameterError{
			Field:  field,
			Reason: fmt.Sprintf("decodes to %d bytes, want %d", len(raw), solana.PublicKeyLength),
		}
	}
	return solana.PublicKeyFromBytes(raw), nil
}
