// Package market assembles price, liquidity and lock facts for a token.
package market

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"solana-token-market/internal/domain"
	"solana-token-market/internal/lplock"
	"solana-token-market/internal/observability"
	"solana-token-market/internal/pool"
	"solana-token-market/internal/pricing"
	"solana-token-market/internal/solana"
)

// Well-known USD stable mints.
const (
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// DefaultSignatureLimit caps the activity lookup.
const DefaultSignatureLimit = 100

// Config configures a Service.
type Config struct {
	Oracle         pricing.Config
	Lock           lplock.Config
	StableMints    []string
	SignatureLimit int
}

// DefaultConfig returns the mainnet configuration.
func DefaultConfig() Config {
	return Config{
		Oracle:         pricing.DefaultConfig(),
		StableMints:    []string{USDCMint, USDTMint},
		SignatureLimit: DefaultSignatureLimit,
	}
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for oracle refreshes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStrategies replaces the default pool resolution strategies.
func WithStrategies(strategies ...pool.Strategy) Option {
	return func(s *Service) { s.resolver = pool.NewResolver(s.logger, strategies...) }
}

// Service is the market data facade. Its public methods never fail:
// internal errors are logged and collapsed to empty values.
type Service struct {
	rpc      solana.RPCClient
	oracle   *pricing.Oracle
	resolver *pool.Resolver
	analyzer *lplock.Analyzer
	logger   *zap.Logger
	now      func() time.Time

	stable   map[string]struct{}
	sigLimit int
}

// NewService wires the oracle, resolver and analyzer over rpc.
func NewService(rpc solana.RPCClient, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = DefaultSignatureLimit
	}
	if cfg.StableMints == nil {
		cfg.StableMints = []string{USDCMint, USDTMint}
	}

	stable := make(map[string]struct{}, len(cfg.StableMints))
	for _, m := range cfg.StableMints {
		stable[m] = struct{}{}
	}

	s := &Service{
		rpc:      rpc,
		oracle:   pricing.NewOracle(rpc, cfg.Oracle, logger.Named("oracle")),
		resolver: pool.NewResolver(logger.Named("pool"), pool.DefaultStrategies(rpc)...),
		analyzer: lplock.NewAnalyzer(rpc, cfg.Lock, logger.Named("lplock")),
		logger:   logger,
		now:      time.Now,
		stable:   stable,
		sigLimit: cfg.SignatureLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentNativeAssetPrice returns the cached SOL price in USD without I/O.
func (s *Service) CurrentNativeAssetPrice() float64 {
	return s.oracle.Get()
}

// RefreshNativePrice re-reads the reference pool when the cached price has expired.
func (s *Service) RefreshNativePrice(ctx context.Context) error {
	_, err := s.oracle.MaybeRefresh(ctx, s.now())
	return err
}

// GetMarketData returns the market snapshot of tokenMint.
// circulatingSupply <= 0 leaves MarketCap nil.
func (s *Service) GetMarketData(ctx context.Context, tokenMint string, circulatingSupply float64) domain.MarketSnapshot {
	if err := s.RefreshNativePrice(ctx); err != nil {
		s.logger.Warn("native price refresh failed, using cached price",
			zap.Float64("price", s.oracle.Get()),
			zap.Error(err),
		)
	}

	rec, err := s.resolver.Resolve(ctx, tokenMint)
	if err != nil || !rec.HasPrice() {
		s.logger.Warn("no priced pool for token", zap.String("mint", tokenMint), zap.Error(err))
		observability.RecordSnapshot("empty")
		return domain.EmptySnapshot()
	}

	native := s.oracle.Get()
	price := rec.QuoteReserve / rec.TokenReserve
	quoteValue := rec.QuoteReserve
	if !s.isStable(rec.QuoteMint) {
		price *= native
		quoteValue *= native
	}

	snap := domain.MarketSnapshot{
		Price:       finite(price),
		Liquidity:   finite(2 * quoteValue),
		PoolAddress: rec.Address,
		Dex:         rec.Dex,
	}
	if circulatingSupply > 0 && snap.Price != nil {
		snap.MarketCap = finite(*snap.Price * circulatingSupply)
	}
	snap.Buys24h, snap.Sells24h = s.activity(ctx, tokenMint)

	observability.RecordSnapshot("priced")
	return snap
}

// GetLpLockInfo returns the LP lock verdict of the pool backing tokenMint.
func (s *Service) GetLpLockInfo(ctx context.Context, tokenMint string) domain.LpLockInfo {
	rec, err := s.resolver.Resolve(ctx, tokenMint)
	if err != nil {
		s.logger.Warn("no pool for lock analysis", zap.String("mint", tokenMint), zap.Error(err))
		return domain.LpLockInfo{}
	}

	info := domain.LpLockInfo{
		PoolAddress: rec.Address,
		Dex:         rec.Dex,
		LpMint:      rec.LpMint,
	}

	switch {
	case rec.Dex == domain.DexBondingCurve:
		// Curve liquidity is program-held until migration.
		info.LockVerdict = domain.NewLockVerdict(rec.LpLockedPct, 0)
	case rec.LpMint != "":
		verdict, err := s.analyzer.Analyze(ctx, rec.LpMint)
		if err != nil {
			s.logger.Warn("lp lock analysis failed",
				zap.String("mint", tokenMint),
				zap.String("lp_mint", rec.LpMint),
				zap.Error(err),
			)
			return info
		}
		info.LockVerdict = verdict
	}
	return info
}

// activity splits the recent signature count evenly, odd remainder to buys.
// It is a placeholder count, not a classification of trade direction.
func (s *Service) activity(ctx context.Context, tokenMint string) (buys, sells int) {
	sigs, err := s.rpc.GetSignaturesForAddress(ctx, tokenMint, &solana.SignaturesOpts{Limit: s.sigLimit})
	if err != nil {
		s.logger.Warn("recent signatures unavailable", zap.String("mint", tokenMint), zap.Error(err))
		return 0, 0
	}
	n := len(sigs)
	if n > s.sigLimit {
		n = s.sigLimit
	}
	return (n + 1) / 2, n / 2
}

func (s *Service) isStable(mint string) bool {
	_, ok := s.stable[mint]
	return ok
}

// finite returns &v, or nil when v is NaN, infinite or negative.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}
