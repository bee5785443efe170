// internal/dex/catalog/catalog.go
// Package catalog отвечает за набор пулов: кэш, отбор кандидатов для пары
// и аналитику ликвидности.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/retry"
)

const (
	DefaultCacheTTL      = 15 * time.Minute
	DefaultFetchInterval = 5 * time.Second
	DefaultHistorySize   = 1000
)

// LiquidityService источник пулов
type LiquidityService interface {
	FetchPools(ctx context.Context, conn blockchain.Connection, programID solana.PublicKey) ([]types.Pool, error)
}

// TokenRegistry справочник отображаемых метаданных
type TokenRegistry interface {
	Lookup(ctx context.Context, mint solana.PublicKey) (types.TokenInfo, bool)
}

// Config параметры каталога
type Config struct {
	ProgramID     solana.PublicKey
	CacheTTL      time.Duration
	CacheFile     string
	FetchInterval time.Duration
	HistorySize   int
}

// Pair пара токенов, упорядоченная по строковому виду mint
type Pair struct {
	A solana.PublicKey `json:"a"`
	B solana.PublicKey `json:"b"`
}

// PoolCatalog кэширует набор пулов и отбирает кандидатов для пары.
type PoolCatalog struct {
	liquidity LiquidityService
	registry  TokenRegistry
	cfg       Config
	strategy  retry.Strategy
	limiter   *rate.Limiter
	metrics   *metrics.Collector
	logger    *zap.Logger

	refresh singleflight.Group

	mu        sync.RWMutex
	pools     []types.Pool
	byAddress map[solana.PublicKey]int
	fetchedAt time.Time
	history   map[solana.PublicKey]*snapshotRing

	now func() time.Time
}

// New создаёт каталог. registry может быть nil: тогда все токены неизвестны.
func New(liquidity LiquidityService, registry TokenRegistry, cfg Config, strategy retry.Strategy, collector *metrics.Collector, logger *zap.Logger) *PoolCatalog {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.FetchInterval <= 0 {
		cfg.FetchInterval = DefaultFetchInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &PoolCatalog{
		liquidity: liquidity,
		registry:  registry,
		cfg:       cfg,
		strategy:  strategy,
		limiter:   rate.NewLimiter(rate.Every(cfg.FetchInterval), 1),
		metrics:   collector,
		logger:    logger.Named("catalog"),
		byAddress: make(map[solana.PublicKey]int),
		history:   make(map[solana.PublicKey]*snapshotRing),
		now:       time.Now,
	}

	if cfg.CacheFile != "" {
		c.loadCacheFile()
	}
	return c
}

// ListCandidatePools пулы, торгующие пару в любом порядке и пригодные
// для котирования. Пустой результат даёт *types.NoRouteError.
func (c *PoolCatalog) ListCandidatePools(ctx context.Context, conn blockchain.Connection, sourceMint, targetMint solana.PublicKey) ([]types.Pool, error) {
	pools, err := c.Pools(ctx, conn)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Pool, 0, 4)
	for i := range pools {
		p := &pools[i]
		if !p.Matches(sourceMint, targetMint) {
			continue
		}
		if !p.Tradable() {
			c.logger.Debug("pool is not tradable, skipped", zap.String("pool", p.Address.String()))
			continue
		}
		candidates = append(candidates, *p)
	}

	c.metrics.ObserveCandidates(len(candidates))
	if len(candidates) == 0 {
		return nil, &types.NoRouteError{Source: sourceMint.String(), Target: targetMint.String()}
	}

	c.logger.Debug("candidate pools found",
		zap.String("source", sourceMint.String()),
		zap.String("target", targetMint.String()),
		zap.Int("count", len(candidates)))
	return candidates, nil
}

// Pools текущий набор пулов; при устаревшем кэше он обновляется.
// Вызывающий получает собственные копии пулов.
func (c *PoolCatalog) Pools(ctx context.Context, conn blockchain.Connection) ([]types.Pool, error) {
	if pools, ok := c.fresh(); ok {
		return pools, nil
	}

	if err := c.Refresh(ctx, conn); err != nil {
		if stale := c.snapshot(); len(stale) > 0 {
			c.logger.Warn("Обновление пулов не удалось, используются устаревшие данные",
				zap.Int("pools", len(stale)),
				zap.String("error", types.SanitizeError(err)))
			return stale, nil
		}
		return nil, err
	}
	return c.snapshot(), nil
}

// Refresh принудительно перечитывает пулы. Одновременные вызовы
// объединяются в один запрос к источнику.
func (c *PoolCatalog) Refresh(ctx context.Context, conn blockchain.Connection) error {
	_, err, _ := c.refresh.Do("pools", func() (interface{}, error) {
		pools, err := c.fetch(ctx, conn)
		c.metrics.RecordPoolFetch(err == nil)
		if err != nil {
			return nil, err
		}
		c.store(pools, c.now())
		c.saveCacheFile()
		return nil, nil
	})
	return err
}

func (c *PoolCatalog) fetch(ctx context.Context, conn blockchain.Connection) ([]types.Pool, error) {
	return retry.Do(ctx, c.strategy, "fetch_pools", func(ctx context.Context, attempt int) ([]types.Pool, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, retry.Permanent(err)
		}
		pools, err := c.liquidity.FetchPools(ctx, conn, c.cfg.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("fetch pools: %w", err)
		}
		return pools, nil
	})
}

func (c *PoolCatalog) fresh() ([]types.Pool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) >= c.cfg.CacheTTL {
		return nil, false
	}
	return clonePools(c.pools), true
}

func (c *PoolCatalog) snapshot() []types.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clonePools(c.pools)
}

// store заменяет набор пулов и дописывает снимки ликвидности
func (c *PoolCatalog) store(pools []types.Pool, at time.Time) {
	owned := clonePools(pools)
	index := make(map[solana.PublicKey]int, len(owned))
	for i := range owned {
		index[owned[i].Address] = i
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pools = owned
	c.byAddress = index
	c.fetchedAt = at
	for i := range owned {
		p := &owned[i]
		ring, ok := c.history[p.Address]
		if !ok {
			ring = newSnapshotRing(c.cfg.HistorySize)
			c.history[p.Address] = ring
		}
		ring.push(newSnapshot(at, p))
	}

	c.logger.Debug("pool set updated", zap.Int("pools", len(owned)))
}

// PoolByAddress пул по адресу из последнего набора
func (c *PoolCatalog) PoolByAddress(addr solana.PublicKey) (types.Pool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byAddress[addr]
	if !ok {
		return types.Pool{}, false
	}
	return c.pools[i].Clone(), true
}

// TokenPairs уникальные пары последнего набора
func (c *PoolCatalog) TokenPairs() []Pair {
	c.mu.RLock()
	seen := make(map[Pair]struct{}, len(c.pools))
	for i := range c.pools {
		a, b := c.pools[i].BaseMint, c.pools[i].QuoteMint
		if b.String() < a.String() {
			a, b = b, a
		}
		seen[Pair{A: a, B: b}] = struct{}{}
	}
	c.mu.RUnlock()

	pairs := make([]Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A.String() < pairs[j].A.String()
		}
		return pairs[i].B.String() < pairs[j].B.String()
	})
	return pairs
}

// DescribeToken метаданные для отображения; decimals всегда берутся из пула.
func (c *PoolCatalog) DescribeToken(ctx context.Context, mint solana.PublicKey, decimals uint8) types.TokenInfo {
	if c.registry == nil {
		return types.UnknownToken(mint, decimals)
	}
	info, ok := c.registry.Lookup(ctx, mint)
	if !ok {
		return types.UnknownToken(mint, decimals)
	}
	info.Mint = mint.String()
	info.Decimals = decimals
	return info
}

func clonePools(pools []types.Pool) []types.Pool {
	if pools == nil {
		return nil
	}
	out := make([]types.Pool, len(pools))
	for i := range pools {
		out[i] = pools[i].Clone()
	}
	return out
}
