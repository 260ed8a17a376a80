package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"solana-token-market/internal/domain"
	"solana-token-market/internal/layout"
	"solana-token-market/internal/solana"
)

// AMMScanStrategy scans every pool account of a constant-product program for the mint.
// The scan is expensive and is not rate limited here.
type AMMScanStrategy struct {
	rpc       solana.RPCClient
	programID string
	layout    layout.AMMLayout
}

// NewAMMScanStrategy creates a scan over programID accounts decoded with l.
func NewAMMScanStrategy(rpc solana.RPCClient, programID string, l layout.AMMLayout) *AMMScanStrategy {
	return &AMMScanStrategy{
		rpc:       rpc,
		programID: programID,
		layout:    l,
	}
}

// Name implements Strategy.
func (s *AMMScanStrategy) Name() string {
	return "amm_scan"
}

// TryResolve implements Strategy.
func (s *AMMScanStrategy) TryResolve(ctx context.Context, tokenMint string) (*domain.PoolRecord, error) {
	acc, isQuote, err := s.scan(ctx, tokenMint)
	if err != nil {
		return nil, err
	}

	st, err := s.layout.Decode(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode pool %s: %w", acc.Pubkey, err)
	}

	var base, quote solana.TokenAmount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		base, err = s.rpc.GetTokenAccountBalance(gctx, st.BaseVault)
		return err
	})
	g.Go(func() error {
		var err error
		quote, err = s.rpc.GetTokenAccountBalance(gctx, st.QuoteVault)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read vaults of pool %s: %w", acc.Pubkey, err)
	}

	rec := &domain.PoolRecord{
		Address:   acc.Pubkey,
		Dex:       domain.DexConstantProductAMM,
		TokenMint: tokenMint,
		LpMint:    st.LpMint,
		IsQuote:   isQuote,
	}
	if isQuote {
		rec.QuoteMint = st.BaseMint
		rec.TokenReserve = quote.Float64()
		rec.QuoteReserve = base.Float64()
	} else {
		rec.QuoteMint = st.QuoteMint
		rec.TokenReserve = base.Float64()
		rec.QuoteReserve = quote.Float64()
	}
	return rec, nil
}

// scan looks for the mint at the base-mint offset, then at the quote-mint offset.
// Only the first match is used; pools are not ranked by liquidity.
func (s *AMMScanStrategy) scan(ctx context.Context, tokenMint string) (solana.ProgramAccount, bool, error) {
	sides := []struct {
		offset  int
		isQuote bool
	}{
		{s.layout.BaseMint, false},
		{s.layout.QuoteMint, true},
	}

	for _, side := range sides {
		accounts, err := s.rpc.GetProgramAccounts(ctx, s.programID, []solana.ProgramAccountFilter{
			{DataSize: uint64(s.layout.Size)},
			{Memcmp: &solana.Memcmp{Offset: side.offset, Bytes: tokenMint}},
		})
		if err != nil {
			return solana.ProgramAccount{}, false, fmt.Errorf("scan %s at offset %d: %w", s.programID, side.offset, err)
		}
		if len(accounts) > 0 {
			return accounts[0], side.isQuote, nil
		}
	}
	return solana.ProgramAccount{}, false, ErrNotFound
}
