// internal/blockchain/solbc/connection_test.go
package solbc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-swapquote/internal/utils/retry"
)

func testManager(api *MockRPC, collector *metrics.Collector) (*ConnectionManager, *int) {
	strategy := retry.New(3, time.Millisecond, zap.NewNop())
	m := NewConnectionManager(strategy, transaction.Config{}, collector, zap.NewNop())
	dials := 0
	m.dial = func(endpoint string) *Client {
		dials++
		return newClient(endpoint, api, zap.NewNop(), transaction.Config{})
	}
	return m, &dials
}

func TestConnect_SucceedsAfterFailures(t *testing.T) {
	api := new(MockRPC)
	api.On("GetVersion", mock.Anything).Return(nil, errors.New("connection refused")).Twice()
	api.On("GetVersion", mock.Anything).Return(&rpc.GetVersionResult{SolanaCore: "2.0.1"}, nil).Once()

	collector := metrics.NewCollector(prometheus.NewRegistry())
	m, dials := testManager(api, collector)

	conn, err := m.Connect(context.Background(), "http://node.test", 3)
	require.NoError(t, err)
	assert.Equal(t, "http://node.test", conn.Endpoint())
	assert.Equal(t, 3, *dials, "каждая попытка открывает новый handle")
	api.AssertNumberOfCalls(t, "GetVersion", 3)
}

func TestConnect_ExhaustsAttempts(t *testing.T) {
	api := new(MockRPC)
	api.On("GetVersion", mock.Anything).Return(nil, errors.New("dial tcp: connection refused, private key=abc"))

	m, _ := testManager(api, nil)

	_, err := m.Connect(context.Background(), "http://node.test", 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConnection)

	var connErr *types.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, 4, connErr.Attempts)
	assert.NotContains(t, err.Error(), "private key")
	api.AssertNumberOfCalls(t, "GetVersion", 4)
}

func TestConnect_CriticalErrorStopsRetries(t *testing.T) {
	api := new(MockRPC)
	api.On("GetVersion", mock.Anything).Return(nil, errors.New("401 Unauthorized"))

	m, _ := testManager(api, nil)

	_, err := m.Connect(context.Background(), "http://node.test", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConnection)
	api.AssertNumberOfCalls(t, "GetVersion", 1)
}

func TestConnect_EmptyResponseIsFailedProbe(t *testing.T) {
	api := new(MockRPC)
	api.On("GetVersion", mock.Anything).Return(&rpc.GetVersionResult{}, nil)

	m, _ := testManager(api, nil)
	_, err := m.Connect(context.Background(), "http://node.test", 2)
	assert.ErrorIs(t, err, types.ErrConnection)
}

func TestConnect_EmptyEndpoint(t *testing.T) {
	m, dials := testManager(new(MockRPC), nil)
	_, err := m.Connect(context.Background(), "  ", 3)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
	assert.Zero(t, *dials)
}

func TestConnect_RecordsAttempts(t *testing.T) {
	api := new(MockRPC)
	api.On("GetVersion", mock.Anything).Return(nil, errors.New("timeout")).Once()
	api.On("GetVersion", mock.Anything).Return(&rpc.GetVersionResult{SolanaCore: "2.0.1"}, nil).Once()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	m, _ := testManager(api, collector)

	_, err := m.Connect(context.Background(), "http://node.test", 3)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "swapquote_rpc_connect_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "по одной серии на success и failure")
}
