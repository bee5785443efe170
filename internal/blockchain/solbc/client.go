// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain"
	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

const (
	// ProbeTimeout ограничение на проверку живости узла
	ProbeTimeout = 5 * time.Second
	// maxAccountsPerRequest лимит getMultipleAccounts на стороне узла
	maxAccountsPerRequest = 100
)

// rpcAPI подмножество методов solana-go, которыми пользуется клиент.
type rpcAPI interface {
	GetVersion(ctx context.Context) (*rpc.GetVersionResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	transaction.StatusReader
}

var _ blockchain.Connection = (*Client)(nil)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	endpoint string
	rpc      rpcAPI
	monitor  *transaction.Monitor
	logger   *zap.Logger
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(endpoint string, logger *zap.Logger, monitorCfg transaction.Config) *Client {
	return newClient(endpoint, rpc.New(endpoint), logger, monitorCfg)
}

func newClient(endpoint string, api rpcAPI, logger *zap.Logger, monitorCfg transaction.Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		rpc:      api,
		monitor:  transaction.NewMonitor(api, logger, monitorCfg),
		logger:   logger.Named("solbc-client"),
	}
}

// Endpoint адрес узла
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Probe проверяет живость узла запросом getVersion
func (c *Client) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	version, err := c.rpc.GetVersion(probeCtx)
	if err != nil {
		return NewError(err, c.endpoint, "getVersion")
	}
	if version == nil || version.SolanaCore == "" {
		return NewError(ErrInvalidResponse, c.endpoint, "getVersion")
	}

	c.logger.Debug("Узел отвечает",
		zap.String("endpoint", c.endpoint),
		zap.String("version", version.SolanaCore))
	return nil
}

// LatestBlockReference получает последний blockhash и высоту его действия.
func (c *Client) LatestBlockReference(ctx context.Context) (types.BlockReference, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Debug("GetLatestBlockhash error", zap.Error(err))
		return types.BlockReference{}, NewError(err, c.endpoint, "getLatestBlockhash")
	}
	if result == nil || result.Value == nil {
		return types.BlockReference{}, NewError(ErrInvalidResponse, c.endpoint, "getLatestBlockhash")
	}
	return types.BlockReference{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetMultipleAccountsData читает данные аккаунтов пачками; отсутствующие аккаунты дают nil.
func (c *Client) GetMultipleAccountsData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error) {
	out := make([][]byte, 0, len(accounts))

	for start := 0; start < len(accounts); start += maxAccountsPerRequest {
		end := min(start+maxAccountsPerRequest, len(accounts))
		batch := accounts[start:end]

		result, err := c.rpc.GetMultipleAccountsWithOpts(ctx, batch, &rpc.GetMultipleAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return nil, NewError(err, c.endpoint, "getMultipleAccounts")
		}
		if result == nil || len(result.Value) != len(batch) {
			return nil, NewError(ErrInvalidResponse, c.endpoint, "getMultipleAccounts")
		}

		for _, acc := range result.Value {
			if acc == nil || acc.Data == nil {
				out = append(out, nil)
				continue
			}
			out = append(out, acc.Data.GetBinary())
		}
	}

	return out, nil
}

// Submit отправляет подписанную транзакцию ровно один раз.
func (c *Client) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.String("error", types.SanitizeError(err)))
		return solana.Signature{}, NewError(err, c.endpoint, "sendTransaction")
	}

	c.logger.Info("Транзакция отправлена", zap.String("signature", sig.String()))
	return sig, nil
}

// Confirm ждёт подтверждения транзакции, пока действителен ref.
func (c *Client) Confirm(ctx context.Context, sig solana.Signature, ref types.BlockReference) error {
	status, err := c.monitor.AwaitConfirmation(ctx, sig, ref)
	if err != nil {
		return err
	}
	c.logger.Info("Транзакция подтверждена",
		zap.String("signature", sig.String()),
		zap.String("status", status.Status),
		zap.Uint64("slot", status.Slot))
	return nil
}

func (c *Client) String() string {
	return fmt.Sprintf("solbc.Client(%s)", c.endpoint)
}
