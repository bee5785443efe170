// internal/blockchain/solbc/token_metadata.go
package solbc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

const metadataTTL = 5 * time.Minute

// knownTokens встроенный минимум реестра
var knownTokens = map[string]types.TokenInfo{
	"So11111111111111111111111111111111111111112":  {Symbol: "SOL", Name: "Wrapped SOL", Decimals: 9},
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {Symbol: "USDT", Name: "USDT", Decimals: 6},
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": {Symbol: "BONK", Name: "Bonk", Decimals: 5},
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R": {Symbol: "RAY", Name: "Raydium", Decimals: 6},
}

// tokenListFile формат файла со списком токенов
type tokenListFile struct {
	Tokens []struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Decimals uint8  `json:"decimals"`
		LogoURI  string `json:"logoURI"`
	} `json:"tokens"`
}

// apiTokenInfo ответ API метаданных токена
type apiTokenInfo struct {
	Success bool `json:"success"`
	Token   struct {
		Symbol  string `json:"symbol"`
		Name    string `json:"name"`
		LogoURI string `json:"logoURI"`
	} `json:"token"`
}

type metadataEntry struct {
	info      types.TokenInfo
	found     bool
	updatedAt time.Time
}

// TokenRegistry справочник отображаемых метаданных токенов с кэшированием.
// Не является источником decimals: их всегда задаёт пул.
type TokenRegistry struct {
	static     map[string]types.TokenInfo
	cache      sync.Map
	apiURL     string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewTokenRegistry создаёт реестр; listFile и apiURL необязательны.
func NewTokenRegistry(listFile, apiURL string, logger *zap.Logger) (*TokenRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &TokenRegistry{
		static: make(map[string]types.TokenInfo, len(knownTokens)),
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger.Named("token-registry"),
		now:    time.Now,
	}
	for mint, info := range knownTokens {
		info.Mint = mint
		r.static[mint] = info
	}

	if listFile != "" {
		n, err := r.loadList(listFile)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("Загружен список токенов", zap.String("file", listFile), zap.Int("tokens", n))
	}
	return r, nil
}

func (r *TokenRegistry) loadList(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read token list: %w", err)
	}
	var list tokenListFile
	if err := json.Unmarshal(data, &list); err != nil {
		return 0, fmt.Errorf("parse token list %s: %w", path, err)
	}

	n := 0
	for _, t := range list.Tokens {
		if _, err := solana.PublicKeyFromBase58(t.Address); err != nil {
			r.logger.Debug("Пропущен токен с некорректным адресом", zap.String("address", t.Address))
			continue
		}
		r.static[t.Address] = types.TokenInfo{
			Mint:     t.Address,
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
			LogoURI:  t.LogoURI,
		}
		n++
	}
	return n, nil
}

// Lookup возвращает метаданные mint, если они известны.
func (r *TokenRegistry) Lookup(ctx context.Context, mint solana.PublicKey) (types.TokenInfo, bool) {
	key := mint.String()

	// 1. Проверяем кэш
	if entry, ok := r.getFromCache(key); ok {
		return entry.info, entry.found
	}

	// 2. Статический реестр
	info, found := r.static[key]

	// 3. Пробуем API
	if !found && r.apiURL != "" {
		enriched, err := r.fetchFromAPI(ctx, mint)
		if err != nil {
			r.logger.Debug("failed to fetch token metadata from API",
				zap.String("mint", key),
				zap.String("error", types.SanitizeError(err)))
		} else {
			info, found = enriched, true
		}
	}

	r.cache.Store(key, &metadataEntry{info: info, found: found, updatedAt: r.now()})

	r.logger.Debug("token metadata resolved",
		zap.String("mint", key),
		zap.Bool("found", found),
		zap.String("symbol", info.Symbol))
	return info, found
}

// getFromCache получает запись из кэша с проверкой TTL
func (r *TokenRegistry) getFromCache(mint string) (*metadataEntry, bool) {
	if value, ok := r.cache.Load(mint); ok {
		entry := value.(*metadataEntry)
		if r.now().Sub(entry.updatedAt) < metadataTTL {
			return entry, true
		}
		r.cache.Delete(mint)
	}
	return nil, false
}

func (r *TokenRegistry) fetchFromAPI(ctx context.Context, mint solana.PublicKey) (types.TokenInfo, error) {
	endpoint, err := url.Parse(r.apiURL)
	if err != nil {
		return types.TokenInfo{}, fmt.Errorf("invalid token API URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("token", mint.String())
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return types.TokenInfo{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return types.TokenInfo{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.TokenInfo{}, fmt.Errorf("API returned status code: %d", resp.StatusCode)
	}

	var tokenInfo apiTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return types.TokenInfo{}, fmt.Errorf("failed to decode API response: %w", err)
	}
	if !tokenInfo.Success || tokenInfo.Token.Symbol == "" {
		return types.TokenInfo{}, fmt.Errorf("API returned unsuccessful response")
	}

	return types.TokenInfo{
		Mint:    mint.String(),
		Symbol:  tokenInfo.Token.Symbol,
		Name:    tokenInfo.Token.Name,
		LogoURI: tokenInfo.Token.LogoURI,
	}, nil
}
