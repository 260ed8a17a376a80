package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"solana-token-market/internal/solana"
	"solana-token-market/internal/solana/stub"
)

func newTestOracle(t *testing.T, rpc *stub.RPCClient) *Oracle {
	t.Helper()
	return NewOracle(rpc, DefaultConfig(), zaptest.NewLogger(t))
}

func setReserves(rpc *stub.RPCClient, sol, usdc string) {
	rpc.AddBalance(DefaultNativeVault, sol, 9)
	rpc.AddBalance(DefaultStableVault, usdc, 6)
}

func TestOracle_InitialPrice(t *testing.T) {
	o := newTestOracle(t, stub.NewRPCClient())
	assert.Equal(t, DefaultPrice, o.Get())
	assert.True(t, o.RefreshedAt().IsZero())
}

func TestOracle_RefreshAccepted(t *testing.T) {
	rpc := stub.NewRPCClient()
	setReserves(rpc, "1000", "180000")
	o := newTestOracle(t, rpc)

	now := time.Unix(1700000000, 0)
	updated, err := o.MaybeRefresh(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.InDelta(t, 180.0, o.Get(), 1e-9)
	assert.Equal(t, now, o.RefreshedAt())
	assert.Equal(t, 2, rpc.Calls("getTokenAccountBalance"))
}

func TestOracle_NoOpWithinTTL(t *testing.T) {
	rpc := stub.NewRPCClient()
	setReserves(rpc, "1000", "180000")
	o := newTestOracle(t, rpc)

	now := time.Unix(1700000000, 0)
	_, err := o.MaybeRefresh(context.Background(), now)
	require.NoError(t, err)

	setReserves(rpc, "1000", "200000")
	updated, err := o.MaybeRefresh(context.Background(), now.Add(59*time.Second))
	require.NoError(t, err)
	assert.False(t, updated)
	assert.InDelta(t, 180.0, o.Get(), 1e-9)
	assert.Equal(t, 2, rpc.Calls("getTokenAccountBalance"))

	updated, err = o.MaybeRefresh(context.Background(), now.Add(60*time.Second))
	require.NoError(t, err)
	assert.True(t, updated)
	assert.InDelta(t, 200.0, o.Get(), 1e-9)
}

func TestOracle_OutOfBandRejected(t *testing.T) {
	tests := []struct {
		name string
		sol  string
		usdc string
	}{
		{"too low", "1000", "5000"},
		{"too high", "1", "5000"},
		{"zero native", "0", "5000"},
		{"both zero", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := stub.NewRPCClient()
			setReserves(rpc, tt.sol, tt.usdc)
			o := newTestOracle(t, rpc)

			updated, err := o.MaybeRefresh(context.Background(), time.Unix(1700000000, 0))
			assert.False(t, updated)
			assert.True(t, errors.Is(err, ErrPriceOutOfBand), "got %v", err)
			assert.Equal(t, DefaultPrice, o.Get())
			assert.True(t, o.RefreshedAt().IsZero())
		})
	}
}

func TestOracle_BandEdgesAccepted(t *testing.T) {
	for _, usdc := range []string{"10", "1000"} {
		rpc := stub.NewRPCClient()
		setReserves(rpc, "1", usdc)
		o := newTestOracle(t, rpc)

		updated, err := o.MaybeRefresh(context.Background(), time.Unix(1700000000, 0))
		require.NoError(t, err)
		assert.True(t, updated)
	}
}

func TestOracle_TransportFailureKeepsPrevious(t *testing.T) {
	rpc := stub.NewRPCClient()
	setReserves(rpc, "1000", "180000")
	o := newTestOracle(t, rpc)

	now := time.Unix(1700000000, 0)
	_, err := o.MaybeRefresh(context.Background(), now)
	require.NoError(t, err)

	rpc.SetError("getTokenAccountBalance", &solana.TransportError{Method: "getTokenAccountBalance", Err: errors.New("timeout")})
	updated, err := o.MaybeRefresh(context.Background(), now.Add(2*time.Minute))
	require.Error(t, err)
	assert.False(t, updated)
	assert.InDelta(t, 180.0, o.Get(), 1e-9)
	assert.Equal(t, now, o.RefreshedAt())
}
