package layout

import "fmt"

// AMMLayout is a versioned offset table for a constant-product pool account.
type AMMLayout struct {
	Name    string
	Version int
	Size    int // exact account length, used as the dataSize scan filter

	BaseDecimal  int
	QuoteDecimal int
	OpenTime     int
	BaseVault    int
	QuoteVault   int
	BaseMint     int
	QuoteMint    int
	LpMint       int
}

// RaydiumAMMV4 is the Raydium liquidity state layout v4.
var RaydiumAMMV4 = AMMLayout{
	Name:         "raydium-amm",
	Version:      4,
	Size:         752,
	BaseDecimal:  32,
	QuoteDecimal: 40,
	OpenTime:     224,
	BaseVault:    336,
	QuoteVault:   368,
	BaseMint:     400,
	QuoteMint:    432,
	LpMint:       464,
}

// AMMPoolState holds the decoded fields needed to price a pool.
type AMMPoolState struct {
	BaseDecimals  uint8
	QuoteDecimals uint8
	OpenTime      uint64
	BaseVault     string
	QuoteVault    string
	BaseMint      string
	QuoteMint     string
	LpMint        string
}

// Decode extracts the pool fields from raw account data.
// Buffers shorter than the layout size fail with ErrMalformedLayout.
func (l AMMLayout) Decode(data []byte) (AMMPoolState, error) {
	if len(data) < l.Size {
		return AMMPoolState{}, fmt.Errorf("%w: %s v%d expects %d bytes, got %d",
			ErrMalformedLayout, l.Name, l.Version, l.Size, len(data))
	}

	var (
		st  AMMPoolState
		err error
	)

	baseDec, err := ReadU64(data, l.BaseDecimal)
	if err != nil {
		return AMMPoolState{}, err
	}
	quoteDec, err := ReadU64(data, l.QuoteDecimal)
	if err != nil {
		return AMMPoolState{}, err
	}
	st.BaseDecimals = uint8(baseDec)
	st.QuoteDecimals = uint8(quoteDec)

	if st.OpenTime, err = ReadU64(data, l.OpenTime); err != nil {
		return AMMPoolState{}, err
	}

	fields := []struct {
		offset int
		dst    *string
	}{
		{l.BaseVault, &st.BaseVault},
		{l.QuoteVault, &st.QuoteVault},
		{l.BaseMint, &st.BaseMint},
		{l.QuoteMint, &st.QuoteMint},
		{l.LpMint, &st.LpMint},
	}
	for _, f := range fields {
		if *f.dst, err = ReadAddress(data, f.offset); err != nil {
			return AMMPoolState{}, err
		}
	}

	return st, nil
}
