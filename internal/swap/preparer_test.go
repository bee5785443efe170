// internal/swap/preparer_test.go
package swap

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-swapquote/internal/storage"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/wallet"
)

func TestPrepare_Ready(t *testing.T) {
	pool := raydiumPool(500_000_000, 250_000_000)
	h := newHarness(t, nil, pool)

	resp := h.preparer.Prepare(context.Background(), h.prepareRequest(1_000_000))
	require.Equal(t, types.StatusSuccess, resp.Status, resp.Error)
	require.True(t, resp.Succeeded())

	meta := resp.Metadata
	assert.Equal(t, int64(60_000), meta.ExpiresAt-meta.PreparedAt)
	assert.Equal(t, h.now.UnixMilli(), meta.PreparedAt)
	assert.Empty(t, meta.Stage)

	id, err := uuid.Parse(meta.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	q := resp.Data.Quote
	assert.Equal(t, meta.QuoteID, q.QuoteID)
	assert.Equal(t, []string{pool.Address.String()}, q.QuoteAddresses)
	assert.LessOrEqual(t, q.MinimumAmount.Raw.Cmp(q.EstimatedAmount.Raw), 0)

	ix := resp.Data.SwapInstructions
	assert.Equal(t, TransactionVersion, ix.Version)
	assert.Equal(t, []string{h.user.PublicKey().String()}, ix.Signers)
	assert.Equal(t, h.ref, ix.BlockReference)
	assert.Equal(t, uint32(200_000), ix.ComputeBudget.ComputeUnits)

	tx, err := decodeTransaction(ix.Transaction)
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.Equal(t, solana.Signature{}, tx.Signatures[0], "слоты подписей должны быть пустыми")
	assert.Equal(t, h.ref.Blockhash, tx.Message.RecentBlockhash)
	assert.Equal(t, h.user.PublicKey(), tx.Message.AccountKeys[0])
	// limit, price, create ATA, swap
	assert.Len(t, tx.Message.Instructions, 4)

	w := wallet.New(h.user.PublicKey())
	source, _ := w.GetATA(pool.BaseMint)
	destination, _ := w.GetATA(pool.QuoteMint)
	assert.Contains(t, tx.Message.AccountKeys, source)
	assert.Contains(t, tx.Message.AccountKeys, destination)

	rec, err := h.journal.Get(context.Background(), meta.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, storage.QuotePrepared, rec.Status)
	assert.Equal(t, q.EstimatedAmount.BaseUnits(), rec.EstimatedAmount)

	h.conn.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestPrepare_Idempotent(t *testing.T) {
	better := raydiumPool(500_000_000, 250_000_000)
	worse := raydiumPool(500_000_000, 200_000_000)
	h := newHarness(t, nil, worse, better)

	first := h.preparer.Prepare(context.Background(), h.prepareRequest(1_000_000))
	second := h.preparer.Prepare(context.Background(), h.prepareRequest(1_000_000))
	require.True(t, first.Succeeded())
	require.True(t, second.Succeeded())

	assert.Equal(t, better.Address.String(), first.Data.Quote.QuoteAddresses[0])
	assert.Equal(t, first.Data.Quote.QuoteAddresses, second.Data.Quote.QuoteAddresses)
	assert.Equal(t, first.Data.Quote.EstimatedAmount.BaseUnits(), second.Data.Quote.EstimatedAmount.BaseUnits())
	assert.NotEqual(t, first.Metadata.QuoteID, second.Metadata.QuoteID)
}

func TestPrepare_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness, req *PrepareRequest)
		stage   types.Stage
		message string
	}{
		{
			name: "no route",
			setup: func(h *harness, req *PrepareRequest) {
				req.TargetMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
			},
			stage:   types.StageQuoting,
			message: "no route",
		},
		{
			name:    "invalid user",
			setup:   func(h *harness, req *PrepareRequest) { req.User = "nope" },
			stage:   types.StageStart,
			message: "invalid parameter user",
		},
		{
			name:    "zero amount",
			setup:   func(h *harness, req *PrepareRequest) { req.Amount = 0 },
			stage:   types.StageQuoting,
			message: "invalid parameter amount",
		},
		{
			name: "connection",
			setup: func(h *harness, req *PrepareRequest) {
				req.Endpoint = "https://down.example"
				h.connector.On("Connect", mock.Anything, "https://down.example", 3).
					Return(nil, &types.ConnectionError{Endpoint: req.Endpoint, Attempts: 3, Err: errors.New("private key leaked")})
			},
			stage:   types.StageConnecting,
			message: "connection to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, raydiumPool(500_000_000, 250_000_000))
			req := h.prepareRequest(1_000_000)
			tt.setup(h, &req)

			resp := h.preparer.Prepare(context.Background(), req)
			assert.Equal(t, types.StatusError, resp.Status)
			assert.Nil(t, resp.Data)
			assert.Empty(t, resp.Metadata.QuoteID)
			assert.Equal(t, tt.stage, resp.Metadata.Stage)
			assert.Equal(t, h.now.UnixMilli(), resp.Metadata.PreparedAt)
			assert.Equal(t, int64(60_000), resp.Metadata.ExpiresAt-resp.Metadata.PreparedAt)
			assert.Contains(t, resp.Error, tt.message)
			assert.NotContains(t, resp.Error, "private key leaked")
		})
	}
}

func TestPrepare_JournalFailureFailsBuilding(t *testing.T) {
	h := newHarness(t, nil, raydiumPool(500_000_000, 250_000_000))
	h.preparer.newID = func() (string, error) { return "fixed-id", nil }

	first := h.preparer.Prepare(context.Background(), h.prepareRequest(1_000_000))
	require.True(t, first.Succeeded())

	second := h.preparer.Prepare(context.Background(), h.prepareRequest(1_000_000))
	assert.Equal(t, types.StatusError, second.Status)
	assert.Equal(t, types.StageBuilding, second.Metadata.Stage)
	assert.Empty(t, second.Metadata.QuoteID)
}

func TestQuoteOnly(t *testing.T) {
	h := newHarness(t, nil, raydiumPool(500_000_000, 250_000_000))
	req := h.prepareRequest(1_000_000)

	resp := h.preparer.QuoteOnly(context.Background(), QuoteOnlyRequest{QuoteRequest: req.QuoteRequest, Endpoint: endpoint})
	require.True(t, resp.Succeeded(), resp.Error)
	assert.NotEmpty(t, resp.Metadata.QuoteID)
	assert.Nil(t, resp.Data.SwapInstructions)
	assert.Equal(t, int64(60_000), resp.Metadata.ExpiresAt-resp.Metadata.PreparedAt)
	h.conn.AssertNotCalled(t, "LatestBlockReference", mock.Anything)

	_, err := h.journal.Get(context.Background(), resp.Metadata.QuoteID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "котировка без транзакции не попадает в журнал")
}

func TestPrepare_SignedWithIntegrity(t *testing.T) {
	integrity := NewIntegrity("test-secret")
	h := newHarness(t, integrity, raydiumPool(500_000_000, 250_000_000))

	resp := h.preparer.Prepare(context.Background(), h.prepareRequest(1_000_000))
	require.True(t, resp.Succeeded())
	assert.Len(t, resp.Signature, 128)
	assert.NoError(t, integrity.Verify(resp))

	failed := h.preparer.Prepare(context.Background(), PrepareRequest{User: "bad"})
	assert.NotEmpty(t, failed.Signature)
}
