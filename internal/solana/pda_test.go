package solana

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pumpProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

func TestFindProgramAddress_Deterministic(t *testing.T) {
	mint, err := base58.Decode("So11111111111111111111111111111111111111112")
	require.NoError(t, err)

	seeds := [][]byte{[]byte("bonding-curve"), mint}
	addr1, bump1, err := FindProgramAddress(seeds, pumpProgram)
	require.NoError(t, err)
	addr2, bump2, err := FindProgramAddress(seeds, pumpProgram)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2)
	assert.Equal(t, bump1, bump2)

	raw, err := base58.Decode(addr1)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.False(t, isOnCurve(raw), "derived address must be off-curve")
}

func TestFindProgramAddress_SeedsChangeAddress(t *testing.T) {
	a, _, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), []byte("a")}, pumpProgram)
	require.NoError(t, err)
	b, _, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), []byte("b")}, pumpProgram)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFindProgramAddress_InvalidInput(t *testing.T) {
	_, _, err := FindProgramAddress(nil, "not-base58-0OIl")
	assert.Error(t, err)

	_, _, err = FindProgramAddress(nil, "1111")
	assert.Error(t, err)

	long := make([]byte, 33)
	_, _, err = FindProgramAddress([][]byte{long}, pumpProgram)
	assert.Error(t, err)
}

func TestIsOnCurve(t *testing.T) {
	// y=0 decodes to a valid point with x = sqrt(-1).
	assert.True(t, isOnCurve(make([]byte, 32)))
}
