package pool

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"solana-token-market/internal/domain"
	"solana-token-market/internal/layout"
	"solana-token-market/internal/solana"
)

const bondingCurveSeed = "bonding-curve"

// BondingCurveStrategy locates a launch-platform bonding curve through its
// program-derived account. Curves hold their own liquidity, so they are reported 100% locked.
type BondingCurveStrategy struct {
	rpc       solana.RPCClient
	programID string
	suffix    string
}

// NewBondingCurveStrategy creates a strategy for mints ending with suffix.
func NewBondingCurveStrategy(rpc solana.RPCClient, programID, suffix string) *BondingCurveStrategy {
	return &BondingCurveStrategy{
		rpc:       rpc,
		programID: programID,
		suffix:    suffix,
	}
}

// Name implements Strategy.
func (s *BondingCurveStrategy) Name() string {
	return "bonding_curve"
}

// CurveAddress derives the bonding-curve account for a mint.
func (s *BondingCurveStrategy) CurveAddress(tokenMint string) (string, error) {
	mint, err := layout.DecodeAddress(tokenMint)
	if err != nil {
		return "", err
	}
	if len(mint) != layout.AddressSize {
		return "", fmt.Errorf("mint %s: expected %d bytes, got %d", tokenMint, layout.AddressSize, len(mint))
	}
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(bondingCurveSeed), mint}, s.programID)
	return addr, err
}

// TryResolve implements Strategy.
func (s *BondingCurveStrategy) TryResolve(ctx context.Context, tokenMint string) (*domain.PoolRecord, error) {
	if !strings.HasSuffix(tokenMint, s.suffix) {
		return nil, ErrNotFound
	}

	curve, err := s.CurveAddress(tokenMint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var (
		accounts []solana.TokenAccount
		info     *solana.AccountInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.rpc.GetTokenAccountsByOwner(gctx, curve, tokenMint)
		return err
	})
	g.Go(func() error {
		var err error
		info, err = s.rpc.GetAccountInfo(gctx, curve)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read bonding curve %s: %w", curve, err)
	}

	// Without the curve account the quote reserve is unknown, not zero.
	if len(accounts) == 0 || info == nil {
		return nil, ErrNotFound
	}

	return &domain.PoolRecord{
		Address:      curve,
		Dex:          domain.DexBondingCurve,
		TokenMint:    tokenMint,
		QuoteMint:    WrappedSOLMint,
		TokenReserve: accounts[0].Amount.Float64(),
		QuoteReserve: solana.LamportsToSOL(info.Lamports),
		LpLocked:     true,
		LpLockedPct:  100,
	}, nil
}
