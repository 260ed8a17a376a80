// Package pool finds the liquidity pool that prices a token.
package pool

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"solana-token-market/internal/domain"
	"solana-token-market/internal/layout"
	"solana-token-market/internal/observability"
	"solana-token-market/internal/solana"
)

// Known program IDs and mints.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// PumpFun is the pump.fun program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// PumpFunSuffix ends every mint launched through pump.fun.
	PumpFunSuffix = "pump"
	// WrappedSOLMint is the wrapped SOL mint, the quote side of bonding curves.
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// ErrNotFound is returned when no strategy yields a pool.
var ErrNotFound = errors.New("pool not found")

// Strategy is one way of locating a token's pool.
// TryResolve returns ErrNotFound when the strategy does not apply or finds nothing.
type Strategy interface {
	Name() string
	TryResolve(ctx context.Context, tokenMint string) (*domain.PoolRecord, error)
}

// Resolver tries strategies in order; the first success wins.
// Strategies run sequentially so an expensive one is skipped once a cheap one succeeds.
type Resolver struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewResolver creates a resolver over strategies.
func NewResolver(logger *zap.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		strategies: strategies,
		logger:     logger,
	}
}

// DefaultStrategies returns the production order: pump.fun bonding curve, then Raydium AMM v4 scan.
// A token with both pools therefore resolves to its bonding curve.
func DefaultStrategies(rpc solana.RPCClient) []Strategy {
	return []Strategy{
		NewBondingCurveStrategy(rpc, PumpFun, PumpFunSuffix),
		NewAMMScanStrategy(rpc, RaydiumAMMV4, layout.RaydiumAMMV4),
	}
}

// Resolve returns the first pool found for tokenMint, or ErrNotFound.
// Strategy errors are logged and never returned.
func (r *Resolver) Resolve(ctx context.Context, tokenMint string) (*domain.PoolRecord, error) {
	for _, s := range r.strategies {
		rec, err := s.TryResolve(ctx, tokenMint)
		switch {
		case err == nil && rec != nil:
			observability.RecordPoolResolution(s.Name(), "found")
			r.logger.Debug("pool resolved",
				zap.String("strategy", s.Name()),
				zap.String("mint", tokenMint),
				zap.String("pool", rec.Address),
			)
			return rec, nil
		case err == nil, errors.Is(err, ErrNotFound):
			observability.RecordPoolResolution(s.Name(), "miss")
			r.logger.Debug("strategy found no pool",
				zap.String("strategy", s.Name()),
				zap.String("mint", tokenMint),
			)
		default:
			observability.RecordPoolResolution(s.Name(), "error")
			r.logger.Warn("strategy failed, trying next",
				zap.String("strategy", s.Name()),
				zap.String("mint", tokenMint),
				zap.Error(err),
			)
		}
	}
	return nil, ErrNotFound
}
