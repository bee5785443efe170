// internal/dex/raydium/pool_source.go
package raydium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// PoolList формат liquidity JSON Raydium (mainnet.json)
type PoolList struct {
	Official   []PoolJSONInfo `json:"official"`
	Unofficial []PoolJSONInfo `json:"unOfficial"`
}

// PoolJSONInfo статическое описание пула: аккаунты, которых нет в AmmInfo.
type PoolJSONInfo struct {
	ID               string `json:"id"`
	BaseMint         string `json:"baseMint"`
	QuoteMint        string `json:"quoteMint"`
	LpMint           string `json:"lpMint"`
	BaseDecimals     int    `json:"baseDecimals"`
	QuoteDecimals    int    `json:"quoteDecimals"`
	Version          int    `json:"version"`
	ProgramID        string `json:"programId"`
	Authority        string `json:"authority"`
	OpenOrders       string `json:"openOrders"`
	TargetOrders     string `json:"targetOrders"`
	BaseVault        string `json:"baseVault"`
	QuoteVault       string `json:"quoteVault"`
	MarketVersion    int    `json:"marketVersion"`
	MarketProgramID  string `json:"marketProgramId"`
	MarketID         string `json:"marketId"`
	MarketAuthority  string `json:"marketAuthority"`
	MarketBaseVault  string `json:"marketBaseVault"`
	MarketQuoteVault string `json:"marketQuoteVault"`
	MarketBids       string `json:"marketBids"`
	MarketAsks       string `json:"marketAsks"`
	MarketEventQueue string `json:"marketEventQueue"`
}

// All официальные пулы идут первыми
func (l *PoolList) All() []PoolJSONInfo {
	out := make([]PoolJSONInfo, 0, len(l.Official)+len(l.Unofficial))
	out = append(out, l.Official...)
	return append(out, l.Unofficial...)
}

// staticPool разобранные адреса одного пула из списка
type staticPool struct {
	id        solana.PublicKey
	program   solana.PublicKey
	baseMint  solana.PublicKey
	quoteMint solana.PublicKey
	extra     map[string]solana.PublicKey
}

func (info PoolJSONInfo) parse() (*staticPool, error) {
	fields := []struct {
		name  string
		value string
		extra string
	}{
		{"id", info.ID, ""},
		{"programId", info.ProgramID, ExtraProgram},
		{"baseMint", info.BaseMint, ""},
		{"quoteMint", info.QuoteMint, ""},
		{"authority", info.Authority, ExtraAuthority},
		{"openOrders", info.OpenOrders, ExtraOpenOrders},
		{"targetOrders", info.TargetOrders, ExtraTargetOrders},
		{"baseVault", info.BaseVault, ExtraBaseVault},
		{"quoteVault", info.QuoteVault, ExtraQuoteVault},
		{"marketProgramId", info.MarketProgramID, ExtraMarketProgram},
		{"marketId", info.MarketID, ExtraMarket},
		{"marketBids", info.MarketBids, ExtraMarketBids},
		{"marketAsks", info.MarketAsks, ExtraMarketAsks},
		{"marketEventQueue", info.MarketEventQueue, ExtraMarketEventQueue},
		{"marketBaseVault", info.MarketBaseVault, ExtraMarketBaseVault},
		{"marketQuoteVault", info.MarketQuoteVault, ExtraMarketQuoteVault},
		{"marketAuthority", info.MarketAuthority, ExtraMarketAuthority},
	}

	sp := &staticPool{extra: make(map[string]solana.PublicKey, len(swapAccountKeys)+1)}
	for _, f := range fields {
		key, err := solana.PublicKeyFromBase58(f.value)
		if err != nil {
			return nil, fmt.Errorf("pool %s: invalid %s: %w", info.ID, f.name, err)
		}
		switch f.name {
		case "id":
			sp.id = key
		case "programId":
			sp.program = key
		case "baseMint":
			sp.baseMint = key
		case "quoteMint":
			sp.quoteMint = key
		}
		if f.extra != "" {
			sp.extra[f.extra] = key
		}
	}
	return sp, nil
}

// loadPoolList читает список пулов из файла или по http(s) URL
func loadPoolList(ctx context.Context, client *http.Client, source string) (*PoolList, error) {
	var (
		data []byte
		err  error
	)

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = fetchPoolList(ctx, client, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pools source: %w", err)
	}

	var poolList PoolList
	if err := json.Unmarshal(data, &poolList); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pools: %w", err)
	}
	return &poolList, nil
}

func fetchPoolList(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
