package market

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"solana-token-market/internal/domain"
	"solana-token-market/internal/layout"
	"solana-token-market/internal/pool"
	"solana-token-market/internal/pricing"
	"solana-token-market/internal/solana"
	"solana-token-market/internal/solana/stub"
)

const pumpMint = "9BB6NFEcjBCtnNLFko2FqVQBq8HHM13kCyYcdQbgpump"

var fixedNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func addr(b byte) string {
	return layout.EncodeAddress(bytes.Repeat([]byte{b}, 32))
}

func newTestService(t *testing.T, rpc *stub.RPCClient, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(rpc, DefaultConfig(), zaptest.NewLogger(t), opts...)
}

// addCurve registers a pump.fun bonding curve holding tokens and lamports.
func addCurve(t *testing.T, rpc *stub.RPCClient, mint, tokens string, lamports uint64) string {
	t.Helper()
	curve, err := pool.NewBondingCurveStrategy(rpc, pool.PumpFun, pool.PumpFunSuffix).CurveAddress(mint)
	require.NoError(t, err)
	rpc.AddTokenAccount(curve, addr(1), mint, tokens, 6)
	rpc.AccountInfos[curve] = &solana.AccountInfo{Lamports: lamports, Owner: pool.PumpFun}
	return curve
}

// addAMM registers a Raydium AMM v4 pool and its vault balances.
func addAMM(t *testing.T, rpc *stub.RPCClient, poolAddr, baseMint, quoteMint, lpMint, baseBal, quoteBal string) {
	t.Helper()
	l := layout.RaydiumAMMV4
	data := make([]byte, l.Size)
	binary.LittleEndian.PutUint64(data[l.BaseDecimal:], 6)
	binary.LittleEndian.PutUint64(data[l.QuoteDecimal:], 6)

	baseVault, quoteVault := addr(200), addr(201)
	for off, a := range map[int]string{
		l.BaseMint:   baseMint,
		l.QuoteMint:  quoteMint,
		l.BaseVault:  baseVault,
		l.QuoteVault: quoteVault,
		l.LpMint:     lpMint,
	} {
		raw, err := layout.DecodeAddress(a)
		require.NoError(t, err)
		copy(data[off:], raw)
	}
	rpc.AddProgramAccount(pool.RaydiumAMMV4, poolAddr, data)
	rpc.AddBalance(baseVault, baseBal, 6)
	rpc.AddBalance(quoteVault, quoteBal, 6)
}

func signatures(n int) []solana.SignatureInfo {
	sigs := make([]solana.SignatureInfo, n)
	for i := range sigs {
		sigs[i] = solana.SignatureInfo{Signature: fmt.Sprintf("sig%d", i)}
	}
	return sigs
}

func TestGetMarketData_BondingCurve(t *testing.T) {
	rpc := stub.NewRPCClient()
	curve := addCurve(t, rpc, pumpMint, "1000000", 2_000_000_000)
	rpc.AddSignatures(pumpMint, signatures(5))

	snap := newTestService(t, rpc).GetMarketData(context.Background(), pumpMint, 1_000_000_000)

	require.NotNil(t, snap.Price)
	assert.InDelta(t, 0.0003, *snap.Price, 1e-12)
	require.NotNil(t, snap.Liquidity)
	assert.InDelta(t, 600.0, *snap.Liquidity, 1e-9)
	require.NotNil(t, snap.MarketCap)
	assert.InDelta(t, 300000.0, *snap.MarketCap, 1e-6)
	assert.Nil(t, snap.Volume24h)
	assert.Nil(t, snap.PriceChange24h)
	assert.Equal(t, 3, snap.Buys24h)
	assert.Equal(t, 2, snap.Sells24h)
	assert.Equal(t, curve, snap.PoolAddress)
	assert.Equal(t, domain.DexBondingCurve, snap.Dex)
}

func TestGetMarketData_StableQuote(t *testing.T) {
	rpc := stub.NewRPCClient()
	token := addr(10)
	addAMM(t, rpc, addr(11), token, USDCMint, addr(12), "5000", "1000")

	snap := newTestService(t, rpc).GetMarketData(context.Background(), token, 100)

	require.NotNil(t, snap.Price)
	assert.InDelta(t, 0.2, *snap.Price, 1e-12)
	require.NotNil(t, snap.Liquidity)
	assert.InDelta(t, 2000.0, *snap.Liquidity, 1e-9)
	require.NotNil(t, snap.MarketCap)
	assert.InDelta(t, 20.0, *snap.MarketCap, 1e-9)
	assert.Equal(t, domain.DexConstantProductAMM, snap.Dex)
	assert.Equal(t, 0, snap.Buys24h)
	assert.Equal(t, 0, snap.Sells24h)
}

func TestGetMarketData_TokenOnQuoteSide(t *testing.T) {
	rpc := stub.NewRPCClient()
	token := addr(20)
	addAMM(t, rpc, addr(21), USDTMint, token, addr(22), "300", "600")

	snap := newTestService(t, rpc).GetMarketData(context.Background(), token, 0)

	require.NotNil(t, snap.Price)
	assert.InDelta(t, 0.5, *snap.Price, 1e-12)
	require.NotNil(t, snap.Liquidity)
	assert.InDelta(t, 600.0, *snap.Liquidity, 1e-9)
	assert.Nil(t, snap.MarketCap)
}

func TestGetMarketData_NoPool(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(addr(30), signatures(10))

	snap := newTestService(t, rpc).GetMarketData(context.Background(), addr(30), 1000)

	assert.Equal(t, domain.EmptySnapshot(), snap)
	assert.Nil(t, snap.Price)
	assert.Nil(t, snap.MarketCap)
	assert.Nil(t, snap.Liquidity)
	assert.Equal(t, 0, snap.Buys24h)
	assert.Equal(t, 0, rpc.Calls("getSignaturesForAddress"))
}

func TestGetMarketData_ZeroTokenReserve(t *testing.T) {
	rpc := stub.NewRPCClient()
	addCurve(t, rpc, pumpMint, "0", 2_000_000_000)

	snap := newTestService(t, rpc).GetMarketData(context.Background(), pumpMint, 1000)
	assert.Nil(t, snap.Price)
	assert.Equal(t, "", snap.PoolAddress)
}

func TestGetMarketData_MissingCurveAccount(t *testing.T) {
	rpc := stub.NewRPCClient()
	curve, err := pool.NewBondingCurveStrategy(rpc, pool.PumpFun, pool.PumpFunSuffix).CurveAddress(pumpMint)
	require.NoError(t, err)
	rpc.AddTokenAccount(curve, addr(1), pumpMint, "1000000", 6)

	snap := newTestService(t, rpc).GetMarketData(context.Background(), pumpMint, 1000)

	assert.Nil(t, snap.Price)
	assert.Nil(t, snap.Liquidity)
	assert.Nil(t, snap.MarketCap)
	assert.Equal(t, domain.EmptySnapshot(), snap)
}

func TestGetMarketData_SignatureLimit(t *testing.T) {
	rpc := stub.NewRPCClient()
	addCurve(t, rpc, pumpMint, "1000", 1_000_000_000)
	rpc.AddSignatures(pumpMint, signatures(150))

	snap := newTestService(t, rpc).GetMarketData(context.Background(), pumpMint, 0)
	assert.Equal(t, 50, snap.Buys24h)
	assert.Equal(t, 50, snap.Sells24h)
}

func TestGetMarketData_SignatureErrorKeepsPrice(t *testing.T) {
	rpc := stub.NewRPCClient()
	addCurve(t, rpc, pumpMint, "1000", 1_000_000_000)
	rpc.SetError("getSignaturesForAddress", &solana.TransportError{Method: "getSignaturesForAddress", Err: errors.New("reset")})

	snap := newTestService(t, rpc).GetMarketData(context.Background(), pumpMint, 0)
	require.NotNil(t, snap.Price)
	assert.Equal(t, 0, snap.Buys24h)
	assert.Equal(t, 0, snap.Sells24h)
}

func TestGetMarketData_RefreshesNativePrice(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddBalance(pricing.DefaultNativeVault, "100", 9)
	rpc.AddBalance(pricing.DefaultStableVault, "20000", 6)
	addCurve(t, rpc, pumpMint, "1000", 1_000_000_000)

	svc := newTestService(t, rpc)
	assert.Equal(t, pricing.DefaultPrice, svc.CurrentNativeAssetPrice())

	snap := svc.GetMarketData(context.Background(), pumpMint, 0)
	assert.Equal(t, 200.0, svc.CurrentNativeAssetPrice())
	require.NotNil(t, snap.Price)
	assert.InDelta(t, 0.2, *snap.Price, 1e-12)

	// Within the TTL the reference pool is not read again.
	svc.GetMarketData(context.Background(), pumpMint, 0)
	assert.Equal(t, 2, rpc.Calls("getTokenAccountBalance"))
}

func TestGetMarketData_OracleFailureUsesCachedPrice(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetError("getTokenAccountBalance", &solana.TransportError{Method: "getTokenAccountBalance", Err: errors.New("timeout")})
	addCurve(t, rpc, pumpMint, "1000", 1_000_000_000)

	svc := newTestService(t, rpc)
	snap := svc.GetMarketData(context.Background(), pumpMint, 0)

	require.NotNil(t, snap.Price)
	assert.InDelta(t, 0.15, *snap.Price, 1e-12)
	assert.Equal(t, pricing.DefaultPrice, svc.CurrentNativeAssetPrice())
}

func TestGetLpLockInfo_BondingCurve(t *testing.T) {
	rpc := stub.NewRPCClient()
	curve := addCurve(t, rpc, pumpMint, "1000", 1_000_000_000)

	info := newTestService(t, rpc).GetLpLockInfo(context.Background(), pumpMint)
	assert.True(t, info.Locked)
	assert.Equal(t, 100.0, info.LockedPct)
	assert.Equal(t, curve, info.PoolAddress)
	assert.Equal(t, 0, rpc.Calls("getTokenLargestAccounts"))
}

func TestGetLpLockInfo_AMM(t *testing.T) {
	rpc := stub.NewRPCClient()
	token, lp := addr(40), addr(41)
	addAMM(t, rpc, addr(42), token, pool.WrappedSOLMint, lp, "1000", "10")
	rpc.AddSupply(lp, "1000000", 6)
	rpc.AddHolder(lp, addr(43), "strmRqUCoQUgGUan5YhzUZa6KqdzwX5L6FpUxfmKg5m", "600000", 6)
	rpc.AddHolder(lp, addr(44), addr(45), "400000", 6)

	info := newTestService(t, rpc).GetLpLockInfo(context.Background(), token)
	assert.True(t, info.Locked)
	assert.Equal(t, 60.0, info.LockedPct)
	assert.Equal(t, 0.0, info.BurnedPct)
	assert.Equal(t, lp, info.LpMint)
	assert.Equal(t, domain.DexConstantProductAMM, info.Dex)
}

func TestGetLpLockInfo_AnalyzerErrorCollapses(t *testing.T) {
	rpc := stub.NewRPCClient()
	token, lp := addr(50), addr(51)
	addAMM(t, rpc, addr(52), token, pool.WrappedSOLMint, lp, "1000", "10")
	rpc.SetError("getTokenLargestAccounts", &solana.ProtocolError{Method: "getTokenLargestAccounts", Code: -32600, Message: "bad"})

	info := newTestService(t, rpc).GetLpLockInfo(context.Background(), token)
	assert.False(t, info.Locked)
	assert.Equal(t, 0.0, info.LockedPct)
	assert.Equal(t, addr(52), info.PoolAddress)
}

func TestGetLpLockInfo_NoPool(t *testing.T) {
	rpc := stub.NewRPCClient()
	info := newTestService(t, rpc).GetLpLockInfo(context.Background(), addr(60))
	assert.Equal(t, domain.LpLockInfo{}, info)
}

type staticStrategy struct{ rec *domain.PoolRecord }

func (staticStrategy) Name() string { return "static" }

func (s staticStrategy) TryResolve(context.Context, string) (*domain.PoolRecord, error) {
	return s.rec, nil
}

func TestGetMarketData_NonFiniteValuesDropped(t *testing.T) {
	rpc := stub.NewRPCClient()
	rec := &domain.PoolRecord{
		Address:      "p",
		Dex:          domain.DexConstantProductAMM,
		QuoteMint:    USDCMint,
		TokenReserve: 1e-300,
		QuoteReserve: 1e300,
	}
	snap := newTestService(t, rpc, WithStrategies(staticStrategy{rec: rec})).
		GetMarketData(context.Background(), "mint", 10)

	assert.Nil(t, snap.Price)
	assert.Nil(t, snap.MarketCap)
	require.NotNil(t, snap.Liquidity)
	assert.InDelta(t, 2e300, *snap.Liquidity, 1e286)
}

func TestFinite(t *testing.T) {
	assert.Nil(t, finite(-1))
	assert.NotNil(t, finite(0))
	v := finite(1.5)
	require.NotNil(t, v)
	assert.Equal(t, 1.5, *v)
}

func TestRefreshNativePrice(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddBalance(pricing.DefaultNativeVault, "1000", 9)
	rpc.AddBalance(pricing.DefaultStableVault, "5", 6)

	svc := newTestService(t, rpc)
	err := svc.RefreshNativePrice(context.Background())
	assert.True(t, errors.Is(err, pricing.ErrPriceOutOfBand))
	assert.Equal(t, pricing.DefaultPrice, svc.CurrentNativeAssetPrice())
}
