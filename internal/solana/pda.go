package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

// ErrNoViableBump is returned when every bump seed produces an on-curve address.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// FindProgramAddress derives the program-derived address for seeds under programID.
// It returns the base58 address and the bump seed that moved it off the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return "", 0, fmt.Errorf("decode program id: %w", err)
	}
	if len(program) != 32 {
		return "", 0, fmt.Errorf("program id %s: expected 32 bytes, got %d", programID, len(program))
	}
	if len(seeds) >= maxSeeds {
		return "", 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return "", 0, fmt.Errorf("seed exceeds %d bytes", maxSeedLength)
		}
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, s := range seeds {
			h.Write(s)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		candidate := h.Sum(nil)

		if !isOnCurve(candidate) {
			return base58.Encode(candidate), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// isOnCurve reports whether b is a valid compressed ed25519 point.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
