// internal/types/token.go
package types

import "github.com/gagliardetto/solana-go"

// TokenInfo справочные данные токена для отображения.
type TokenInfo struct {
	Mint     string `json:"mint"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
}

// UnknownToken заглушка для mint, которого нет в реестре.
func UnknownToken(mint solana.PublicKey, decimals uint8) TokenInfo {
	return TokenInfo{
		Mint:     mint.String(),
		Symbol:   "UNKNOWN",
		Name:     "Unknown Token",
		Decimals: decimals,
	}
}
