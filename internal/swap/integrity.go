// internal/swap/integrity.go
package swap

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// Integrity подписывает ответы HMAC-SHA512 и проверяет их при исполнении.
// nil *Integrity отключает подпись.
type Integrity struct {
	secret []byte
}

// NewIntegrity возвращает nil для пустого секрета.
func NewIntegrity(secret string) *Integrity {
	if secret == "" {
		return nil
	}
	return &Integrity{secret: []byte(secret)}
}

// signedPayload каноническая форма: data и metadata в фиксированном порядке полей
type signedPayload struct {
	Data     *types.ResponseData `json:"data"`
	Metadata types.Metadata      `json:"metadata"`
}

func (i *Integrity) digest(resp types.SwapResponse) ([]byte, error) {
	payload, err := json.Marshal(signedPayload{Data: resp.Data, Metadata: resp.Metadata})
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	mac := hmac.New(sha512.New, i.secret)
	mac.Write(payload)
	return mac.Sum(nil), nil
}

// Sign заполняет resp.Signature.
func (i *Integrity) Sign(resp *types.SwapResponse) error {
	if i == nil {
		return nil
	}
	sum, err := i.digest(*resp)
	if err != nil {
		return err
	}
	resp.Signature = hex.EncodeToString(sum)
	return nil
}

// Verify сравнивает подпись ответа с пересчитанной.
func (i *Integrity) Verify(resp types.SwapResponse) error {
	if i == nil {
		return nil
	}
	if resp.Signature == "" {
		return &types.IntegrityError{Reason: "response is not signed"}
	}
	got, err := hex.DecodeString(resp.Signature)
	if err != nil {
		return &types.IntegrityError{Reason: "response signature is not hex"}
	}
	want, err := i.digest(resp)
	if err != nil {
		return &types.IntegrityError{Reason: err.Error()}
	}
	if !hmac.Equal(got, want) {
		return &types.IntegrityError{Reason: "response signature mismatch"}
	}
	return nil
}
