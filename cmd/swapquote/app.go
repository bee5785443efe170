// cmd/swapquote/app.go
package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-swapquote/internal/config"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/catalog"
	"github.com/rovshanmuradov/solana-swapquote/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-swapquote/internal/quote"
	"github.com/rovshanmuradov/solana-swapquote/internal/storage"
	"github.com/rovshanmuradov/solana-swapquote/internal/storage/memory"
	"github.com/rovshanmuradov/solana-swapquote/internal/storage/postgres"
	"github.com/rovshanmuradov/solana-swapquote/internal/swap"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/logger"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/retry"
)

// app собранный граф зависимостей одного процесса
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	registry  *prometheus.Registry
	connector *solbc.ConnectionManager
	endpoints *solbc.EndpointPool
	catalog   *catalog.PoolCatalog
	journal   storage.QuoteJournal
	preparer  *swap.Preparer
	executor  *swap.Executor
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	base := log.Logger

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	strategy := retry.New(cfg.Retries, cfg.RetryDelay, base)

	connector := solbc.NewConnectionManager(strategy, transaction.Config{
		PollInterval: cfg.ConfirmPollInterval,
	}, collector, base)

	tokens, err := solbc.NewTokenRegistry(cfg.TokenListFile, cfg.TokenAPIURL, base)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("load token list: %w", err)
	}

	ray := raydium.NewService(cfg.PoolSource, base)
	pools := catalog.New(ray, tokens, catalog.Config{
		ProgramID:     cfg.ProgramKey(),
		CacheTTL:      cfg.PoolCacheTTL,
		CacheFile:     cfg.PoolCacheFile,
		FetchInterval: cfg.PoolFetchInterval,
	}, strategy, collector, base)

	journal, err := openJournal(ctx, cfg, base)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	deps := swap.Deps{
		Connector: connector,
		Quoter:    quote.NewEngine(pools, ray, cfg.QuoteWorkers, collector, base),
		Builder:   ray,
		Priority:  types.NewPriorityManager(base),
		Journal:   journal,
		Integrity: swap.NewIntegrity(cfg.IntegritySecret),
		Metrics:   collector,
		Logger:    base,
	}
	opts := swap.Options{
		MaxRetries:   cfg.Retries,
		Priority:     types.PriorityLevel(cfg.Priority),
		ComputeUnits: cfg.ComputeUnits,
		PriorityFee:  cfg.PriorityFee,
	}

	return &app{
		cfg:       cfg,
		log:       log,
		registry:  registry,
		connector: connector,
		endpoints: solbc.NewEndpointPool(cfg.RPCList),
		catalog:   pools,
		journal:   journal,
		preparer:  swap.NewPreparer(deps, opts),
		executor:  swap.NewExecutor(deps, opts),
	}, nil
}

// openJournal postgres при заданном postgres_url, иначе журнал в памяти процесса
func openJournal(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.QuoteJournal, error) {
	if cfg.PostgresURL == "" {
		log.Debug("Using in-memory quote journal")
		return memory.NewQuoteJournal(), nil
	}
	journal, err := postgres.NewQuoteJournal(ctx, cfg.PostgresURL, log)
	if err != nil {
		return nil, fmt.Errorf("open quote journal: %w", err)
	}
	if err := postgres.RunMigrations(ctx, journal); err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("migrate quote journal: %w", err)
	}
	return journal, nil
}

func (a *app) Close() {
	if err := a.journal.Close(); err != nil {
		a.log.Warn("failed to close journal", zap.Error(err))
	}
	_ = a.log.Sync()
}

// slippage флаг --slippage-bps или значение из конфигурации
func (a *app) slippage(cmd *cobra.Command) uint16 {
	if cmd.Flags().Changed("slippage-bps") {
		bps, _ := cmd.Flags().GetUint16("slippage-bps")
		return bps
	}
	return a.cfg.DefaultSlippageBps
}

// endpoint флаг --endpoint или следующий RPC из rpc_list
func (a *app) endpoint(cmd *cobra.Command) string {
	if ep, _ := cmd.Flags().GetString("endpoint"); ep != "" {
		return ep
	}
	return a.endpoints.Next()
}
