package domain

// MarketSnapshot is the consolidated market view of one token.
// A nil numeric field means the value could not be determined.
type MarketSnapshot struct {
	Price          *float64 `json:"price"`          // USD per token
	MarketCap      *float64 `json:"marketCap"`      // price x circulating supply
	Liquidity      *float64 `json:"liquidity"`      // 2 x quote-side value, an approximation
	Volume24h      *float64 `json:"volume24h"`      // always nil, needs history
	PriceChange24h *float64 `json:"priceChange24h"` // always nil, needs history
	Buys24h        int      `json:"buys24h"`        // half of recent signatures, not a classification
	Sells24h       int      `json:"sells24h"`       // other half of recent signatures
	PoolAddress    string   `json:"poolAddress"`
	Dex            DexID    `json:"dex"`
}

// EmptySnapshot returns the snapshot used when no priced pool exists.
func EmptySnapshot() MarketSnapshot {
	return MarketSnapshot{}
}
