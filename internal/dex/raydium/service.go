// internal/dex/raydium/service.go
// Package raydium реализует источник ликвидности Raydium AMM v4.
package raydium

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

const defaultRequestTimeout = 30 * time.Second

// Service читает пулы Raydium v4 и считает по ним обмены.
type Service struct {
	source     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewService создаёт сервис; source путь к liquidity JSON или его URL.
func NewService(source string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source: source,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		logger: logger.Named("raydium"),
	}
}

// FetchPools загружает список пулов программы programID и читает их
// текущее состояние с чейна. Пулы с нечитаемым состоянием пропускаются.
func (s *Service) FetchPools(ctx context.Context, conn blockchain.Connection, programID solana.PublicKey) ([]types.Pool, error) {
	if s.source == "" {
		return nil, errors.New("pool source is not configured")
	}

	list, err := loadPoolList(ctx, s.httpClient, s.source)
	if err != nil {
		return nil, err
	}

	statics := make([]*staticPool, 0, len(list.Official)+len(list.Unofficial))
	for _, info := range list.All() {
		sp, err := info.parse()
		if err != nil {
			s.logger.Debug("skip pool with invalid addresses", zap.Error(err))
			continue
		}
		if !sp.program.Equals(programID) {
			continue
		}
		statics = append(statics, sp)
	}
	if len(statics) == 0 {
		s.logger.Warn("no pools for program in source",
			zap.String("program", programID.String()),
			zap.String("source", s.source))
		return nil, nil
	}

	ids := make([]solana.PublicKey, len(statics))
	for i, sp := range statics {
		ids[i] = sp.id
	}
	ammData, err := conn.GetMultipleAccountsData(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch amm accounts: %w", err)
	}
	if len(ammData) != len(ids) {
		return nil, fmt.Errorf("%w: got %d amm accounts for %d pools", ErrInvalidAccountData, len(ammData), len(ids))
	}

	type decoded struct {
		static *staticPool
		info   *AmmInfo
	}
	live := make([]decoded, 0, len(statics))
	for i, sp := range statics {
		info, err := s.decodeAmm(sp, ammData[i])
		if err != nil {
			s.logger.Debug("skip pool",
				zap.String("pool", sp.id.String()),
				zap.Error(err))
			continue
		}
		live = append(live, decoded{static: sp, info: info})
	}

	if len(live) == 0 {
		s.logger.Warn("no live pools after decoding", zap.Int("listed", len(statics)))
		return nil, nil
	}

	vaults := make([]solana.PublicKey, 0, 2*len(live))
	for _, d := range live {
		vaults = append(vaults, d.info.BaseVault, d.info.QuoteVault)
	}
	vaultData, err := conn.GetMultipleAccountsData(ctx, vaults)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vault accounts: %w", err)
	}
	if len(vaultData) != len(vaults) {
		return nil, fmt.Errorf("%w: got %d vault accounts for %d vaults", ErrInvalidAccountData, len(vaultData), len(vaults))
	}

	pools := make([]types.Pool, 0, len(live))
	for i, d := range live {
		baseAmount, errBase := DecodeTokenAmount(vaultData[2*i])
		quoteAmount, errQuote := DecodeTokenAmount(vaultData[2*i+1])
		if err := errors.Join(errBase, errQuote); err != nil {
			s.logger.Debug("skip pool with unreadable vaults",
				zap.String("pool", d.static.id.String()),
				zap.Error(err))
			continue
		}
		pools = append(pools, buildPool(d.static, d.info, baseAmount, quoteAmount))
	}

	s.logger.Debug("pools fetched",
		zap.Int("listed", len(statics)),
		zap.Int("live", len(pools)))
	return pools, nil
}

func (s *Service) decodeAmm(sp *staticPool, data []byte) (*AmmInfo, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: amm account not found", ErrInvalidAccountData)
	}
	info, err := DecodeAmmInfo(data)
	if err != nil {
		return nil, err
	}
	if !info.Swappable() {
		return nil, fmt.Errorf("%w: status %d", ErrPoolNotSwappable, info.Status)
	}
	if !info.BaseMint.Equals(sp.baseMint) || !info.QuoteMint.Equals(sp.quoteMint) {
		return nil, fmt.Errorf("%w: mints differ from pool list", ErrInvalidAccountData)
	}
	return info, nil
}

// buildPool резервы за вычетом pnl, который ещё не забрал протокол
func buildPool(sp *staticPool, info *AmmInfo, baseAmount, quoteAmount uint64) types.Pool {
	extra := make(map[string]solana.PublicKey, len(sp.extra))
	for k, v := range sp.extra {
		extra[k] = v
	}
	// состояние с чейна главнее статического списка
	extra[ExtraBaseVault] = info.BaseVault
	extra[ExtraQuoteVault] = info.QuoteVault
	extra[ExtraOpenOrders] = info.OpenOrders
	extra[ExtraTargetOrders] = info.TargetOrders
	extra[ExtraMarket] = info.MarketID
	extra[ExtraMarketProgram] = info.MarketProgram

	return types.Pool{
		Address:       sp.id,
		BaseMint:      info.BaseMint,
		BaseReserve:   netReserve(baseAmount, info.BaseNeedTakePnl),
		BaseDecimals:  info.BaseDecimals,
		QuoteMint:     info.QuoteMint,
		QuoteReserve:  netReserve(quoteAmount, info.QuoteNeedTakePnl),
		QuoteDecimals: info.QuoteDecimals,
		TradeFee:      info.SwapFee,
		OwnerFee:      info.OwnerFee(),
		Extra:         extra,
	}
}

func netReserve(amount, pnl uint64) *big.Int {
	if pnl >= amount {
		return new(big.Int)
	}
	return new(big.Int).SetUint64(amount - pnl)
}
