package domain

// LockThresholdPct is the combined locked+burned share above which liquidity counts as locked.
const LockThresholdPct = 50.0

// LockVerdict summarizes how much of an LP supply is locked or burned.
type LockVerdict struct {
	Locked    bool    `json:"locked"`
	LockedPct float64 `json:"lockedPct"` // 0-100, held by lock programs
	BurnedPct float64 `json:"burnedPct"` // 0-100, held by burn-like owners
}

// NewLockVerdict derives Locked from the two percentages.
func NewLockVerdict(lockedPct, burnedPct float64) LockVerdict {
	return LockVerdict{
		Locked:    lockedPct+burnedPct > LockThresholdPct,
		LockedPct: lockedPct,
		BurnedPct: burnedPct,
	}
}

// LpLockInfo is the lock verdict for the pool backing a token.
type LpLockInfo struct {
	LockVerdict
	PoolAddress string `json:"poolAddress"`
	Dex         DexID  `json:"dex"`
	LpMint      string `json:"lpMint"`
}
