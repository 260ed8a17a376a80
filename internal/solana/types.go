package solana

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// TokenAmount is an SPL token quantity as reported by the node.
type TokenAmount struct {
	Amount   string          // raw base units
	Decimals uint8           // mint decimals
	UIAmount decimal.Decimal // Amount shifted by -Decimals
}

// Float64 returns the decimal quantity as float64.
func (a TokenAmount) Float64() float64 {
	f, _ := a.UIAmount.Float64()
	return f
}

// IsZero reports whether the amount is zero.
func (a TokenAmount) IsZero() bool {
	return a.UIAmount.IsZero()
}

// NewTokenAmount builds a TokenAmount from a raw base-unit string.
// An unparsable raw amount yields zero.
func NewTokenAmount(raw string, decimals uint8) TokenAmount {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		d = decimal.Zero
	}
	return TokenAmount{
		Amount:   raw,
		Decimals: decimals,
		UIAmount: d.Shift(-int32(decimals)),
	}
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return NewTokenAmount(strconv.FormatUint(lamports, 10), 9).Float64()
}

// TokenHolder is one entry of getTokenLargestAccounts.
type TokenHolder struct {
	Address string // token account address, not the wallet
	Amount  TokenAmount
}

// TokenAccount is a jsonParsed SPL token account.
type TokenAccount struct {
	Address string
	Mint    string
	Owner   string // authority of the token account
	Amount  TokenAmount
}

// ParsedAccount is a jsonParsed account from getMultipleAccounts.
type ParsedAccount struct {
	Address    string
	Lamports   uint64
	Program    string // owning program
	TokenOwner string // parsed.info.owner for token accounts, empty otherwise
	Mint       string // parsed.info.mint for token accounts, empty otherwise
}

// ProgramAccount is a base64-decoded entry of getProgramAccounts.
type ProgramAccount struct {
	Pubkey   string
	Lamports uint64
	Owner    string
	Data     []byte
}

// ProgramAccountFilter is a getProgramAccounts filter.
// Exactly one of DataSize or Memcmp should be set.
type ProgramAccountFilter struct {
	DataSize uint64
	Memcmp   *Memcmp
}

// Memcmp matches base58-encoded Bytes at Offset of the account data.
type Memcmp struct {
	Offset int
	Bytes  string
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}
