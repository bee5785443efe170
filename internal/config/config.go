// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-swapquote/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/logger"
)

type Config struct {
	RPCList             []string      `mapstructure:"rpc_list"`
	ProgramID           string        `mapstructure:"program_id"`
	PoolSource          string        `mapstructure:"pool_source"`
	PoolCacheFile       string        `mapstructure:"pool_cache_file"`
	PoolCacheTTL        time.Duration `mapstructure:"pool_cache_ttl"`
	PoolFetchInterval   time.Duration `mapstructure:"pool_fetch_interval"`
	TokenListFile       string        `mapstructure:"token_list_file"`
	TokenAPIURL         string        `mapstructure:"token_api_url"`
	Retries             int           `mapstructure:"retries"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	QuoteWorkers        int           `mapstructure:"quote_workers"`
	DefaultSlippageBps  uint16        `mapstructure:"default_slippage_bps"`
	Priority            string        `mapstructure:"priority"`
	ComputeUnits        uint32        `mapstructure:"compute_units"`
	PriorityFee         uint64        `mapstructure:"priority_fee"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval"`
	IntegritySecret     string        `mapstructure:"integrity_secret"`
	PostgresURL         string        `mapstructure:"postgres_url"`
	HTTPAddr            string        `mapstructure:"http_addr"`
	Log                 logger.Config `mapstructure:"log"`
}

const (
	DefaultPoolCacheTTL        = 15 * time.Minute
	DefaultPoolFetchInterval   = 5 * time.Second
	DefaultRetries             = 3
	DefaultRetryDelay          = 500 * time.Millisecond
	DefaultQuoteWorkers        = 8
	DefaultSlippageBps         = 50
	DefaultConfirmPollInterval = 2 * time.Second
	DefaultHTTPAddr            = ":8080"

	envPrefix = "SWAPQUOTE"
)

// Load читает конфигурацию: файл (необязателен), затем env SWAPQUOTE_*, затем флаги.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	logDefaults := logger.DefaultConfig()
	defaults := map[string]interface{}{
		"rpc_list":              []string{},
		"program_id":            raydium.RaydiumV4ProgramID.String(),
		"pool_source":           "",
		"pool_cache_file":       "",
		"token_list_file":       "",
		"token_api_url":         "",
		"integrity_secret":      "",
		"postgres_url":          "",
		"pool_cache_ttl":        DefaultPoolCacheTTL,
		"pool_fetch_interval":   DefaultPoolFetchInterval,
		"retries":               DefaultRetries,
		"retry_delay":           DefaultRetryDelay,
		"quote_workers":         DefaultQuoteWorkers,
		"default_slippage_bps":  DefaultSlippageBps,
		"priority":              string(types.PriorityMedium),
		"compute_units":         0,
		"priority_fee":          0,
		"confirm_poll_interval": DefaultConfirmPollInterval,
		"http_addr":             DefaultHTTPAddr,
		"log.file":              "",
		"log.max_size":          logDefaults.MaxSize,
		"log.max_age":           logDefaults.MaxAge,
		"log.max_backups":       logDefaults.MaxBackups,
		"log.compress":          logDefaults.Compress,
		"log.development":       false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		// флаги CLI пишутся через дефис, ключи конфигурации через подчёркивание
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// явно заданный флаг --rpc-list важнее env
	if flags == nil || !flags.Changed("rpc-list") {
		loadEnvironmentVariables(&cfg)
	}

	return &cfg, validateConfig(&cfg)
}

// ProgramKey program id AMM в виде ключа; валидность проверена в Load.
func (c *Config) ProgramKey() solana.PublicKey {
	key, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return raydium.RaydiumV4ProgramID
	}
	return key
}

// Endpoint первый RPC из списка.
func (c *Config) Endpoint() string {
	if len(c.RPCList) == 0 {
		return ""
	}
	return c.RPCList[0]
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return errors.New("invalid program_id")
	}
	if cfg.PoolSource == "" {
		return errors.New("pool_source is empty")
	}
	if cfg.TokenAPIURL != "" {
		if err := validateURLWithCache(cfg.TokenAPIURL, "http"); err != nil {
			return errors.New("invalid token_api_url")
		}
	}
	if err := types.ValidateSlippage(cfg.DefaultSlippageBps); err != nil {
		return errors.New("invalid default_slippage_bps")
	}
	switch types.PriorityLevel(cfg.Priority) {
	case types.PriorityLow, types.PriorityMedium, types.PriorityHigh, types.PriorityExtreme:
	default:
		return errors.New("invalid priority")
	}
	if cfg.PostgresURL != "" {
		if err := validateURLWithCache(cfg.PostgresURL, "postgres"); err != nil {
			return errors.New("invalid postgres_url")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Retries <= 0 {
		return errors.New("invalid retries count")
	}
	if cfg.RetryDelay < 0 {
		return errors.New("invalid retry_delay")
	}
	if cfg.QuoteWorkers <= 0 {
		return errors.New("invalid quote_workers count")
	}
	if cfg.PoolCacheTTL <= 0 {
		return errors.New("invalid pool_cache_ttl")
	}
	if cfg.PoolFetchInterval < 0 {
		return errors.New("invalid pool_fetch_interval")
	}
	if cfg.ConfirmPollInterval <= 0 {
		return errors.New("invalid confirm_poll_interval")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// loadEnvironmentVariables список RPC в env задаётся через запятую
func loadEnvironmentVariables(cfg *Config) {
	envRPCList := os.Getenv(envPrefix + "_RPC_LIST")
	if envRPCList == "" {
		return
	}
	rpcs := strings.Split(envRPCList, ",")
	var cleanRPCs []string
	for _, rpc := range rpcs {
		clean := strings.TrimSpace(rpc)
		if clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
}
