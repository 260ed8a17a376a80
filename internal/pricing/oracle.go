// Package pricing keeps the cached USD price of SOL.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-token-market/internal/observability"
	"solana-token-market/internal/solana"
)

// Defaults for the SOL/USDC reference pool (Raydium AMM v4).
const (
	DefaultTTL         = 60 * time.Second
	DefaultPrice       = 150.0
	DefaultMinPrice    = 10.0
	DefaultMaxPrice    = 1000.0
	DefaultNativeVault = "DQyrAcCrDXQ7NeoqGgDCZwBvWDcYmFCjSb9JtteuvPpz"
	DefaultStableVault = "HLmqeL62xR1QoZ1HKKbXRrdN1p3phKpxRMb2VVopvBBz"
)

// ErrPriceOutOfBand is returned when a candidate price fails the sanity band.
var ErrPriceOutOfBand = errors.New("candidate price outside sanity band")

// Config configures an Oracle.
type Config struct {
	TTL          time.Duration
	InitialPrice float64
	MinPrice     float64
	MaxPrice     float64
	NativeVault  string // SOL side of the reference pool
	StableVault  string // USD stable side of the reference pool
}

// DefaultConfig returns the production reference-pool configuration.
func DefaultConfig() Config {
	return Config{
		TTL:          DefaultTTL,
		InitialPrice: DefaultPrice,
		MinPrice:     DefaultMinPrice,
		MaxPrice:     DefaultMaxPrice,
		NativeVault:  DefaultNativeVault,
		StableVault:  DefaultStableVault,
	}
}

// Oracle caches the SOL price and refreshes it from the reference pool at most once per TTL.
type Oracle struct {
	rpc    solana.RPCClient
	cfg    Config
	logger *zap.Logger

	mu          sync.RWMutex
	price       float64
	refreshedAt time.Time
}

// NewOracle creates an Oracle seeded with cfg.InitialPrice.
func NewOracle(rpc solana.RPCClient, cfg Config, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		rpc:    rpc,
		cfg:    cfg,
		logger: logger,
		price:  cfg.InitialPrice,
	}
}

// Get returns the cached price. It never performs I/O.
func (o *Oracle) Get() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.price
}

// RefreshedAt returns the time of the last accepted refresh, zero if none.
func (o *Oracle) RefreshedAt() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.refreshedAt
}

// MaybeRefresh re-reads the reference pool unless the cache is younger than the TTL.
// It reports whether a new price was stored. On error the previous price stays authoritative.
// Overlapping callers may both refresh; the result is the same either way.
func (o *Oracle) MaybeRefresh(ctx context.Context, now time.Time) (bool, error) {
	o.mu.RLock()
	fresh := !o.refreshedAt.IsZero() && now.Sub(o.refreshedAt) < o.cfg.TTL
	o.mu.RUnlock()
	if fresh {
		return false, nil
	}

	candidate, err := o.fetch(ctx)
	if err != nil {
		observability.RecordPriceRefresh("error", o.Get())
		return false, err
	}

	if math.IsNaN(candidate) || math.IsInf(candidate, 0) ||
		candidate < o.cfg.MinPrice || candidate > o.cfg.MaxPrice {
		observability.RecordPriceRefresh("rejected", o.Get())
		return false, fmt.Errorf("%w: %.4f not in [%.0f, %.0f]",
			ErrPriceOutOfBand, candidate, o.cfg.MinPrice, o.cfg.MaxPrice)
	}

	o.mu.Lock()
	o.price = candidate
	o.refreshedAt = now
	o.mu.Unlock()

	observability.RecordPriceRefresh("accepted", candidate)
	o.logger.Debug("native price refreshed", zap.Float64("price", candidate))
	return true, nil
}

// fetch reads both vaults concurrently and returns stable/native.
func (o *Oracle) fetch(ctx context.Context) (float64, error) {
	var native, stable solana.TokenAmount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		native, err = o.rpc.GetTokenAccountBalance(gctx, o.cfg.NativeVault)
		if err != nil {
			return fmt.Errorf("native vault balance: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stable, err = o.rpc.GetTokenAccountBalance(gctx, o.cfg.StableVault)
		if err != nil {
			return fmt.Errorf("stable vault balance: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// A zero native balance yields +Inf (or NaN) and is rejected by the band check.
	return stable.Float64() / native.Float64(), nil
}
