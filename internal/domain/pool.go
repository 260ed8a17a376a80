package domain

// DexID identifies the pool program layout a PoolRecord was decoded from.
type DexID string

// Supported pool kinds.
const (
	DexBondingCurve       DexID = "BondingCurve"       // pump.fun bonding curve
	DexConstantProductAMM DexID = "ConstantProductAmm" // Raydium AMM v4
)

// PoolRecord is one liquidity pool read at a single point in time.
// Reserves are decimal quantities, never negative.
type PoolRecord struct {
	Address      string  // pool (or bonding-curve) account
	Dex          DexID   // program layout
	TokenMint    string  // queried token
	QuoteMint    string  // the other side of the pair
	TokenReserve float64 // token-side reserve
	QuoteReserve float64 // quote-side reserve
	LpMint       string  // LP token mint, empty when the pool has none
	LpLocked     bool    // lock verdict known at resolution time
	LpLockedPct  float64 // 0-100
	IsQuote      bool    // token was found on the pool's quote side
}

// HasPrice reports whether the pool can produce a price.
func (p *PoolRecord) HasPrice() bool {
	return p != nil && p.TokenReserve > 0
}
